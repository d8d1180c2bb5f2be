// Package advisor implements the stateless companion tools: chat replies,
// mood analysis over a short frame burst, and scoped expert answers. Each
// call is a single request/response with no retry; an empty reply is
// replaced with a fixed fallback string.
package advisor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"github.com/boncukgram/boncuk/pkg/core"
)

// DefaultModel is the text model used by every tool.
const DefaultModel = "gemini-3-flash-preview"

// System instructions, prompts and fallbacks.
const (
	ChatSystemInstruction = "Sen Boncuk Danışmanı adında kuş uzmanı bir AI asistanısın."
	ChatFallback          = "Yanıt oluşturulamadı."
	// ChatGreeting opens a new conversation on the client.
	ChatGreeting = "Selam! Ben Boncuk Danışmanı. Kuşun hakkında ne merak ediyorsun? İstersen bir fotoğrafını gönder, analiz edeyim!"

	MoodSystemInstruction = "Sen profesyonel bir kuş davranış bilimcisisin."
	MoodPrompt            = "Bu 6 saniyelik görüntü sekansını analiz et. Kuşun vücut diline, kanat hareketlerine ve duruşuna bakarak psikolojik durumunu detaylıca Türkçe açıkla."
	MoodFallback          = "Analiz sonucu alınamadı."

	expertSystemFormat = "Sen Boncukgram AI uzmanısın. Uzmanlık alanın: %s. Samimi ve bilimsel cevaplar ver."
	expertPromptFormat = "Araç: %s. Soru: %s"
	ExpertFallback     = "Üzgünüm, şu an yanıt veremiyorum."
)

// Generator is the request/response call to the model. genai's
// Models.GenerateContent has this shape.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Role is the author of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one chat history entry. Image holds raw image bytes, if any.
type Turn struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Image []byte `json:"-"`
}

// Advisor runs the companion tools against a Generator.
type Advisor struct {
	gen    Generator
	model  string
	logger *slog.Logger
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(a *Advisor) {
		if model != "" {
			a.model = model
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advisor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an advisor.
func New(gen Generator, opts ...Option) *Advisor {
	a := &Advisor{gen: gen, model: DefaultModel, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the model requests are sent to.
func (a *Advisor) Model() string { return a.model }

func (a *Advisor) generate(ctx context.Context, tool string, contents []*genai.Content, system, fallback string) (string, error) {
	if a.gen == nil {
		return "", core.NewCredentialMissingError("model client is not configured")
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	resp, err := a.gen.GenerateContent(ctx, a.model, contents, cfg)
	if err != nil {
		a.logger.Warn("advisor request failed", "tool", tool, "err", err)
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		a.logger.Info("advisor returned no text; using fallback", "tool", tool)
		return fallback, nil
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// imagePart builds an inline image part, sniffing the MIME type. Anything
// that is not recognisably an image is sent as JPEG.
func imagePart(data []byte) *genai.Part {
	mime := "image/jpeg"
	if m := mimetype.Detect(data); strings.HasPrefix(m.String(), "image/") {
		mime = m.String()
	}
	return genai.NewPartFromBytes(data, mime)
}

// turnParts puts the optional image before the text, like the client does.
func turnParts(text string, image []byte) []*genai.Part {
	var parts []*genai.Part
	if len(image) > 0 {
		parts = append(parts, imagePart(image))
	}
	return append(parts, genai.NewPartFromText(text))
}
