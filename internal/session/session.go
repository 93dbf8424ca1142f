package session

import (
	"sync"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pitchlab/salescoach/internal/scenario"
	"github.com/pitchlab/salescoach/internal/speech"
	"github.com/pitchlab/salescoach/internal/transcribe"
)

type Role string

const (
	RoleInstruction Role = "instruction"
	RoleHuman       Role = "human"
	RoleGenerated   Role = "generated"
)

// Turn — одна реплика в истории диалога.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type State int

const (
	StateIdle State = iota
	StateAwaitingCapture
	StateProcessing
	StateSpeaking
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCapture:
		return "awaiting_capture"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session живёт ровно столько, сколько живёт соединение клиента.
type Session struct {
	ID       string
	Scenario *scenario.Scenario

	Pacer  *speech.Pacer
	Bridge *transcribe.Bridge

	// threshold — сколько обменов до терминального фидбека; сценарий
	// может переопределить серверный дефолт через question_budget.
	threshold int

	mu             sync.Mutex
	history        []Turn
	turnCount      int
	feedbackIssued bool
	capturePaused  bool
	state          State
	processing     bool
}

// New создаёт сессию с затравочной парой instruction+human из сценария.
func New(sc *scenario.Scenario, questionBudget int) (*Session, error) {
	instruction, seed, err := scenario.BuildScript(sc, questionBudget)
	if err != nil {
		return nil, err
	}

	if sc.QuestionBudget > 0 {
		questionBudget = sc.QuestionBudget
	}

	return &Session{
		ID:        uuid.NewString(),
		Scenario:  sc,
		Pacer:     speech.NewPacer(),
		threshold: questionBudget,
		history: []Turn{
			{Role: RoleInstruction, Text: instruction},
			{Role: RoleHuman, Text: seed},
		},
		state: StateIdle,
	}, nil
}

// tryBeginProcessing — single-flight на сессию: берём слот обработки,
// только если сессия свободна и ещё слушает.
func (s *Session) tryBeginProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing || s.feedbackIssued {
		return false
	}
	if s.state != StateIdle && s.state != StateAwaitingCapture {
		return false
	}

	s.processing = true
	s.state = StateProcessing
	return true
}

// endProcessing отпускает слот на любом выходе из Processing.
func (s *Session) endProcessing(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	if s.state != StateClosed {
		s.state = next
	}
}

func (s *Session) appendTurn(role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Text: text})
}

func (s *Session) completeExchange() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
	return s.turnCount
}

func (s *Session) markFeedbackIssued() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackIssued = true
}

func (s *Session) FeedbackIssued() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedbackIssued
}

func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) setCapturePaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturePaused = paused
}

func (s *Session) CapturePaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturePaused
}

// beginResume переводит Speaking → AwaitingCapture. Возвращает false,
// если таймер пережил смену состояния (например, сессию уже закрыли).
func (s *Session) beginResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSpeaking {
		return false
	}
	s.state = StateAwaitingCapture
	s.capturePaused = false
	return true
}

// History отдаёт копию истории: снаружи её никто не мутирует.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// messages разворачивает историю в формат completion-сервиса.
func (s *Session) messages() []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]openai.ChatCompletionMessage, 0, len(s.history))
	for _, t := range s.history {
		role := openai.ChatMessageRoleUser
		switch t.Role {
		case RoleInstruction:
			role = openai.ChatMessageRoleSystem
		case RoleGenerated:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return out
}
