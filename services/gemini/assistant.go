package gemini

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/lumina/core/assistant"
)

// ChatModel is a stateless chat over a Gemini model: the history is replayed on every call.
type ChatModel struct {
	gen   generator
	model string
}

var _ assistant.Model = (*ChatModel)(nil)

func NewChatModel(client *genai.Client, model string) *ChatModel {
	return &ChatModel{gen: client.Models, model: model}
}

func (m *ChatModel) Chat(ctx context.Context, systemInstruction string, history []assistant.Message, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == assistant.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	resp, err := m.gen.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", errors.Wrap(err, "generating reply")
	}
	return resp.Text(), nil
}
