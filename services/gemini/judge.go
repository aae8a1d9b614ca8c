package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/lumina/core/reflection"
)

const judgeInstruction = `あなたは医療事務・調剤報酬の動画教材の講師です。
受講者が動画を視聴した後に書いた感想を評価してください。
動画の内容に関連した具体的な学びや気づきが書かれていれば合格とし、
無関係な内容や意味のない文字列、コピーしただけの文章は不合格としてください。
feedback には受講者へのコメントを日本語で一、二文で書いてください。`

var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"passed":   {Type: genai.TypeBoolean},
		"feedback": {Type: genai.TypeString},
	},
	Required: []string{"passed", "feedback"},
}

// Judge asks a Gemini model for a structured verdict.
// Reflections rejected by the prefilter never reach the model.
type Judge struct {
	gen       generator
	model     string
	prefilter reflection.Judge
}

var _ reflection.Judge = (*Judge)(nil)

func NewJudge(client *genai.Client, model string, prefilter reflection.Judge) *Judge {
	return newJudge(client.Models, model, prefilter)
}

func newJudge(gen generator, model string, prefilter reflection.Judge) *Judge {
	return &Judge{gen: gen, model: model, prefilter: prefilter}
}

func judgePrompt(title, description, text string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "動画タイトル: %s\n", title)
	fmt.Fprintf(&sb, "動画の概要: %s\n\n", description)
	fmt.Fprintf(&sb, "受講者の感想:\n%s", strings.TrimSpace(text))
	return sb.String()
}

func (j *Judge) Evaluate(ctx context.Context, title, description, text string) (reflection.Verdict, error) {
	if j.prefilter != nil {
		verdict, err := j.prefilter.Evaluate(ctx, title, description, text)
		if err != nil || !verdict.Passed {
			return verdict, err
		}
	}

	resp, err := j.gen.GenerateContent(
		ctx,
		j.model,
		[]*genai.Content{genai.NewContentFromText(judgePrompt(title, description, text), genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(judgeInstruction, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.2),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    verdictSchema,
		},
	)
	if err != nil {
		return reflection.Verdict{}, errors.Wrap(err, "generating verdict")
	}

	var verdict reflection.Verdict
	if err = json.Unmarshal([]byte(resp.Text()), &verdict); err != nil {
		return reflection.Verdict{}, errors.Wrap(err, "decoding verdict")
	}
	if verdict.Feedback = strings.TrimSpace(verdict.Feedback); verdict.Feedback == "" {
		return reflection.Verdict{}, errors.New("empty verdict feedback")
	}
	return verdict, nil
}
