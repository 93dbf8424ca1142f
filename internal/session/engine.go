package session

import (
	"context"
	"log"

	"github.com/pitchlab/salescoach/internal/ai"
)

// DefaultQuestionThreshold — сколько вопросов персона задаёт до фидбека,
// если ни сервер, ни сценарий не переопределили порог.
const DefaultQuestionThreshold = 5

const closingInstruction = "Please now switch out of character and provide your detailed feedback as per your instructions."

type ResultKind int

const (
	// KindNone — ход молча отброшен (гонка клиента с пейсингом, не ошибка).
	KindNone ResultKind = iota
	KindTurn
	KindFeedback
)

// Result — исход одного обмена репликами.
type Result struct {
	Kind ResultKind
	Text string
}

// GenerationError — completion-сервис не ответил; ход не засчитан.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// Engine продвигает диалог ровно на один обмен: реплика продавца →
// ответ персоны, либо терминальный фидбек по достижении порога сессии.
type Engine struct {
	completer ai.Completer
	threshold int // серверный дефолт для новых сессий
}

func NewEngine(completer ai.Completer, threshold int) *Engine {
	if threshold <= 0 {
		threshold = DefaultQuestionThreshold
	}
	return &Engine{completer: completer, threshold: threshold}
}

func (e *Engine) Threshold() int { return e.threshold }

// SubmitTurn предполагает, что single-flight слот сессии уже взят.
// При ошибке генерации turnCount и feedbackIssued не меняются, а реплика
// продавца остаётся в истории — повторная попытка уйдёт с полным контекстом.
func (e *Engine) SubmitTurn(ctx context.Context, s *Session, text string) (Result, error) {
	if s.FeedbackIssued() {
		return Result{}, nil
	}

	s.appendTurn(RoleHuman, text)

	reply, err := e.completer.GetCompletion(ctx, s.messages())
	if err != nil {
		return Result{}, &GenerationError{Err: err}
	}

	s.appendTurn(RoleGenerated, reply)
	count := s.completeExchange()
	log.Printf("[session] %s exchange %d/%d done", s.ID, count, s.threshold)

	if count < s.threshold {
		return Result{Kind: KindTurn, Text: reply}, nil
	}

	// порог достигнут: просим персону выйти из роли и оценить питч
	s.appendTurn(RoleInstruction, closingInstruction)

	feedback, err := e.completer.GetCompletion(ctx, s.messages())
	if err != nil {
		return Result{}, &GenerationError{Err: err}
	}

	s.appendTurn(RoleGenerated, feedback)
	s.markFeedbackIssued()
	log.Printf("[session] %s feedback issued", s.ID)

	return Result{Kind: KindFeedback, Text: feedback}, nil
}
