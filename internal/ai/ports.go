package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

type Completer interface {
	// GetCompletion отправляет всю историю диалога и возвращает один ответ модели.
	GetCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}
