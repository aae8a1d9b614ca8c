// Package assistant answers learner questions in the context of the module being watched.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/course"
)

// MaxHistory is the number of most recent messages sent along with a question.
const MaxHistory = 8

const (
	FallbackReply = "AIアシスタントとの接続に失敗しました。時間をおいて再度お試しください。"
	EmptyReply    = "申し訳ありません。回答を生成できませんでした。"
)

type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

type Message struct {
	Role MessageRole `json:"role" validate:"required,oneof=user model"`
	Text string      `json:"text" validate:"required"`
}

type (
	// Model is a chat-capable language model.
	Model interface {
		Chat(ctx context.Context, systemInstruction string, history []Message, message string) (string, error)
	}

	Assistant struct {
		model  Model
		logger core.Logger
	}
)

// New returns an Assistant. A nil model makes every answer the fallback reply.
func New(model Model, logger core.Logger) *Assistant {
	return &Assistant{model: model, logger: logger}
}

type AskRequest struct {
	Message string    `json:"message" validate:"required,notblank,max=4000"`
	History []Message `json:"history" validate:"max=100,dive"`
}

func (ar *AskRequest) Validate(validate *validator.Validate) error {
	ar.Message = core.CleanString(ar.Message)
	return validate.Struct(ar)
}

type AskResponse struct {
	Reply string `json:"reply"`
}

// SystemInstruction frames the conversation around the module.
func SystemInstruction(crs course.Course, mod course.Module) string {
	var sb strings.Builder
	sb.WriteString("あなたは調剤報酬および医療事務の専門家AIアシスタントです。\n")
	fmt.Fprintf(&sb, "現在ユーザーはコース「%s」の動画教材「%s」を視聴しています。\n", crs.Title, mod.Title)
	fmt.Fprintf(&sb, "動画の概要: %s\n\n", mod.Description)
	sb.WriteString("ユーザーからの質問に対して、この動画の文脈を踏まえつつ、初心者にもわかりやすく丁寧に回答してください。\n")
	sb.WriteString("動画の内容と関係のない質問には、軽く応じつつ、医療事務や調剤報酬の学習に戻るよう促してください。\n")
	sb.WriteString("回答は日本語で、簡潔かつ具体的にお願いします。")
	return sb.String()
}

// recent keeps the last MaxHistory messages.
func recent(history []Message) []Message {
	if len(history) <= MaxHistory {
		return history
	}
	return history[len(history)-MaxHistory:]
}

// Ask returns the model's answer, or a fixed apology if the model fails.
func (a *Assistant) Ask(ctx context.Context, crs course.Course, mod course.Module, message string, history []Message) string {
	if a.model == nil {
		return FallbackReply
	}
	reply, err := a.model.Chat(ctx, SystemInstruction(crs, mod), recent(history), message)
	if err != nil {
		a.logger.Error(fmt.Sprintf("assistant: chat failed: %v", err), errors.Wrap(err, "chatting"))
		return FallbackReply
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return EmptyReply
	}
	return reply
}
