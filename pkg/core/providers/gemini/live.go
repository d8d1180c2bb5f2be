package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/live"
)

// Connect implements live.Connector over genai's Live API.
func (p *Provider) Connect(ctx context.Context, cfg live.Config) (live.Conn, error) {
	session, err := p.client.Live.Connect(ctx, cfg.Model, liveConnectConfig(cfg))
	if err != nil {
		mapped := mapError(err)
		if core.TypeOf(mapped) == core.ErrAPI {
			return nil, core.NewConnectionError("gemini live connect failed", err)
		}
		return nil, mapped
	}
	p.logger.Debug("gemini live connected", "model", cfg.Model, "voice", cfg.Voice)
	return &liveConn{session: session}, nil
}

func liveConnectConfig(cfg live.Config) *genai.LiveConnectConfig {
	modality := genai.ModalityAudio
	if cfg.ResponseModality != "" {
		modality = genai.Modality(cfg.ResponseModality)
	}
	out := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{modality},
	}
	if cfg.Voice != "" {
		out.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		out.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	return out
}

type liveConn struct {
	session *genai.Session
}

func (c *liveConn) SendAudio(pcm []byte) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: live.AudioMIMEType},
	})
}

func (c *liveConn) SendFrame(jpeg []byte) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Video: &genai.Blob{Data: jpeg, MIMEType: live.FrameMIMEType},
	})
}

func (c *liveConn) Receive() (*live.Message, error) {
	msg, err := c.session.Receive()
	if err != nil {
		return nil, err
	}
	return toMessage(msg), nil
}

func (c *liveConn) Close() error {
	return c.session.Close()
}

// toMessage extracts inline audio parts and turn markers.
func toMessage(msg *genai.LiveServerMessage) *live.Message {
	out := &live.Message{}
	if msg == nil || msg.ServerContent == nil {
		return out
	}
	sc := msg.ServerContent
	out.TurnComplete = sc.TurnComplete
	out.Interrupted = sc.Interrupted
	if sc.ModelTurn == nil {
		return out
	}
	for _, part := range sc.ModelTurn.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime != "" && !strings.HasPrefix(mime, "audio/") {
			continue
		}
		out.Audio = append(out.Audio, part.InlineData.Data)
	}
	return out
}
