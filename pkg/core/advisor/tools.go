package advisor

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/boncukgram/boncuk/pkg/core"
)

// ChatReply sends the whole history plus the new turn and returns the
// model's reply. There is no server-side conversation state.
func (a *Advisor) ChatReply(ctx context.Context, history []Turn, prompt string, image []byte) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for i, turn := range history {
		role, err := genaiRole(turn.Role)
		if err != nil {
			return "", core.NewInvalidRequestErrorWithParam(err.Error(), fmt.Sprintf("history[%d].role", i))
		}
		contents = append(contents, genai.NewContentFromParts(turnParts(turn.Text, turn.Image), role))
	}
	contents = append(contents, genai.NewContentFromParts(turnParts(prompt, image), genai.RoleUser))
	return a.generate(ctx, "chat", contents, ChatSystemInstruction, ChatFallback)
}

// MoodFromFrameSequence sends every frame followed by the fixed analysis
// prompt in one request. An empty sequence still issues the request.
func (a *Advisor) MoodFromFrameSequence(ctx context.Context, frames [][]byte) (string, error) {
	parts := make([]*genai.Part, 0, len(frames)+1)
	for _, f := range frames {
		parts = append(parts, genai.NewPartFromBytes(f, "image/jpeg"))
	}
	parts = append(parts, genai.NewPartFromText(MoodPrompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return a.generate(ctx, "mood", contents, MoodSystemInstruction, MoodFallback)
}

// ExpertAnswer asks the model as a specialist for tool.
func (a *Advisor) ExpertAnswer(ctx context.Context, tool, query string, image []byte) (string, error) {
	text := fmt.Sprintf(expertPromptFormat, tool, query)
	contents := []*genai.Content{genai.NewContentFromParts(turnParts(text, image), genai.RoleUser)}
	return a.generate(ctx, "expert", contents, ExpertSystemInstruction(tool), ExpertFallback)
}

// ExpertSystemInstruction returns the system instruction scoped to tool.
func ExpertSystemInstruction(tool string) string {
	return fmt.Sprintf(expertSystemFormat, tool)
}

func genaiRole(r Role) (genai.Role, error) {
	switch r {
	case RoleUser:
		return genai.RoleUser, nil
	case RoleModel:
		return genai.RoleModel, nil
	default:
		return "", fmt.Errorf("role must be %q or %q", RoleUser, RoleModel)
	}
}
