package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/core/codec"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/gateway/mw"
)

// maxMoodFrames bounds a single /v1/mood request.
const maxMoodFrames = 32

type ChatTurn struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type ChatRequest struct {
	History []ChatTurn `json:"history,omitempty"`
	Prompt  string     `json:"prompt"`
	Image   string     `json:"image,omitempty"`
}

type MoodRequest struct {
	Frames []string `json:"frames"`
}

type ExpertRequest struct {
	Tool  string `json:"tool"`
	Query string `json:"query"`
	Image string `json:"image,omitempty"`
}

// ReplyResponse is the body of every companion tool response.
type ReplyResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// ChatHandler serves POST /v1/chat.
type ChatHandler struct {
	Config  config.Config
	Advisor *advisor.Advisor
	Logger  *slog.Logger
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req ChatRequest
	if err := decodeStrict(r, &req); err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	image, err := decodeOptionalImage(req.Image, "image")
	if err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && image == nil {
		writeErr(w, h.Logger, reqID, core.NewInvalidRequestErrorWithParam("prompt or image is required", "prompt"))
		return
	}
	history := make([]advisor.Turn, 0, len(req.History))
	for i, t := range req.History {
		img, err := decodeOptionalImage(t.Image, fmt.Sprintf("history[%d].image", i))
		if err != nil {
			writeErr(w, h.Logger, reqID, err)
			return
		}
		history = append(history, advisor.Turn{Role: advisor.Role(t.Role), Text: t.Text, Image: img})
	}

	ctx, cancel := withTimeout(r.Context(), h.Config.HandlerTimeout)
	defer cancel()
	start := time.Now()
	text, err := h.Advisor.ChatReply(ctx, history, req.Prompt, image)
	if err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	writeReply(w, h.Advisor.Model(), text, start)
}

// MoodHandler serves POST /v1/mood. Frames are the client's recorded
// sequence, oldest first.
type MoodHandler struct {
	Config  config.Config
	Advisor *advisor.Advisor
	Logger  *slog.Logger
}

func (h MoodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req MoodRequest
	if err := decodeStrict(r, &req); err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	if len(req.Frames) > maxMoodFrames {
		writeErr(w, h.Logger, reqID, core.NewInvalidRequestErrorWithParam(fmt.Sprintf("at most %d frames are accepted", maxMoodFrames), "frames"))
		return
	}
	frames := make([][]byte, 0, len(req.Frames))
	for i, f := range req.Frames {
		b, err := codec.DecodeInlineImage(f)
		if err != nil || len(b) == 0 {
			writeErr(w, h.Logger, reqID, core.NewInvalidRequestErrorWithParam("frame is not valid base64", fmt.Sprintf("frames[%d]", i)))
			return
		}
		frames = append(frames, b)
	}

	ctx, cancel := withTimeout(r.Context(), h.Config.HandlerTimeout)
	defer cancel()
	start := time.Now()
	text, err := h.Advisor.MoodFromFrameSequence(ctx, frames)
	if err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	writeReply(w, h.Advisor.Model(), text, start)
}

// ExpertHandler serves POST /v1/expert.
type ExpertHandler struct {
	Config  config.Config
	Advisor *advisor.Advisor
	Logger  *slog.Logger
}

func (h ExpertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req ExpertRequest
	if err := decodeStrict(r, &req); err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	if strings.TrimSpace(req.Tool) == "" {
		writeErr(w, h.Logger, reqID, core.NewInvalidRequestErrorWithParam("tool is required", "tool"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeErr(w, h.Logger, reqID, core.NewInvalidRequestErrorWithParam("query is required", "query"))
		return
	}
	image, err := decodeOptionalImage(req.Image, "image")
	if err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}

	ctx, cancel := withTimeout(r.Context(), h.Config.HandlerTimeout)
	defer cancel()
	start := time.Now()
	text, err := h.Advisor.ExpertAnswer(ctx, req.Tool, req.Query, image)
	if err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	writeReply(w, h.Advisor.Model(), text, start)
}

// ExpertToolsHandler serves GET /v1/expert/tools.
type ExpertToolsHandler struct{}

func (h ExpertToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Categories []advisor.Category `json:"categories"`
	}{Categories: advisor.Catalog})
}

func writeReply(w http.ResponseWriter, model, text string, start time.Time) {
	w.Header().Set("X-Model", model)
	w.Header().Set("X-Duration-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	writeJSON(w, http.StatusOK, ReplyResponse{Text: text, Model: model})
}

func decodeOptionalImage(s, param string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	b, err := codec.DecodeInlineImage(s)
	if err != nil || len(b) == 0 {
		return nil, core.NewInvalidRequestErrorWithParam("image is not valid base64", param)
	}
	return b, nil
}
