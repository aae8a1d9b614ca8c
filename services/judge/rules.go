// Package judge scores reflections with a local heuristic.
package judge

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/reflection"
)

const (
	tooShortFeedback = "感想が短すぎます。あと%d文字以上記述してください。具体的な学びを書きましょう。"
	bannedFeedback   = "不適切な内容が含まれているか、意味のない文字列の可能性があります。真面目に感想を書いてください。"
	passedFeedback   = "確認しました！素晴らしい振り返りです。次のチャプターへ進んでください。"
)

// Rules passes reflections that are long enough and free of banned words.
type Rules struct {
	minLength   int
	bannedWords []string
}

var _ reflection.Judge = (*Rules)(nil)

func NewRules(conf core.ReflectionConfig) *Rules {
	banned := make([]string, 0, len(conf.BannedWords))
	for _, word := range conf.BannedWords {
		if word = strings.TrimSpace(word); word != "" {
			banned = append(banned, word)
		}
	}
	return &Rules{minLength: conf.MinLength, bannedWords: banned}
}

// Evaluate ignores the module: the verdict only depends on the text.
// Length is counted in characters, after trimming surrounding whitespace.
func (r *Rules) Evaluate(ctx context.Context, _, _, text string) (reflection.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return reflection.Verdict{}, err
	}

	trimmed := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(trimmed); n < r.minLength {
		return reflection.Verdict{Passed: false, Feedback: fmt.Sprintf(tooShortFeedback, r.minLength-n)}, nil
	}
	for _, word := range r.bannedWords {
		if strings.Contains(trimmed, word) {
			return reflection.Verdict{Passed: false, Feedback: bannedFeedback}, nil
		}
	}
	return reflection.Verdict{Passed: true, Feedback: passedFeedback}, nil
}
