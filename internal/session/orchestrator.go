package session

import (
	"context"
	"encoding/base64"
	"log"
	"sync"
	"time"

	"github.com/pitchlab/salescoach/internal/scenario"
	"github.com/pitchlab/salescoach/internal/speech"
	"github.com/pitchlab/salescoach/internal/transcribe"
)

// Фиксированные пользовательские тексты деградации (см. исходный продукт).
const (
	fallbackReplyText       = "⚠️ Sorry, there was an issue generating a response."
	transcriptionFailedText = "⚠️ Transcription failed."
	completionCallTimeout   = 120 * time.Second
)

// Channel — исходящая сторона канала одной сессии. Транспорт для
// оркестратора непрозрачен: delivery-слой решает, как это сериализовать.
type Channel interface {
	EmitTranscript(text string)
	EmitReply(text string)
	EmitAudio(base64Audio string)
	PauseCapture()
	ResumeCapture()
}

// Archiver сохраняет стенограмму завершённой сессии. Best-effort.
type Archiver interface {
	SaveTranscript(ctx context.Context, sessionID string, turns []Turn) (string, error)
}

// Notifier — алерт админу о сбое внешнего сервиса.
type Notifier interface {
	Notify(ctx context.Context, err error, details string) error
}

type entry struct {
	sess *Session
	ch   Channel
}

// Orchestrator — координатор всех живых сессий: связывает мост
// распознавания, движок диалога, синтез и пейсер, и гоняет машину
// состояний каждой сессии.
type Orchestrator struct {
	engine   *Engine
	synth    speech.Synthesizer
	stt      transcribe.Dialer
	archiver Archiver
	notifier Notifier

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewOrchestrator(
	engine *Engine,
	synth speech.Synthesizer,
	stt transcribe.Dialer,
	archiver Archiver,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		synth:    synth,
		stt:      stt,
		archiver: archiver,
		notifier: notifier,
		sessions: make(map[string]*entry),
	}
}

// Connect создаёт сессию для нового соединения. id — идентификатор
// соединения, он же ключ таблицы сессий.
func (o *Orchestrator) Connect(id string, sc *scenario.Scenario, ch Channel) (*Session, error) {
	sess, err := New(sc, o.engine.Threshold())
	if err != nil {
		return nil, err
	}

	sess.Bridge = transcribe.NewBridge(
		o.stt,
		func(text string) {
			ch.EmitTranscript(text)
			o.HandleUtterance(id, text)
		},
		func(err error) {
			log.Printf("[orchestrator] %s transcription stream: %v", id, err)
			o.notify(err, "transcription stream failed, session "+id)
			ch.EmitTranscript(transcriptionFailedText)
		},
	)

	o.mu.Lock()
	o.sessions[id] = &entry{sess: sess, ch: ch}
	o.mu.Unlock()

	log.Printf("[orchestrator] 🟢 connected %s (session %s, scenario %q)", id, sess.ID, sc.Name)
	return sess, nil
}

// Configure заменяет сценарий сессии, пока диалог ещё не начался.
// start_session — необязательное событие: без него живёт дефолтная персона.
func (o *Orchestrator) Configure(id string, sc *scenario.Scenario) error {
	o.mu.Lock()
	e, ok := o.sessions[id]
	o.mu.Unlock()
	if !ok {
		return nil
	}

	if e.sess.TurnCount() > 0 || e.sess.State() == StateProcessing {
		log.Printf("[orchestrator] %s start_session ignored: conversation already running", id)
		return nil
	}

	fresh, err := New(sc, o.engine.Threshold())
	if err != nil {
		return err
	}

	fresh.Bridge = e.sess.Bridge
	e.sess.Pacer.Cancel()

	o.mu.Lock()
	if cur, ok := o.sessions[id]; ok && cur == e {
		o.sessions[id] = &entry{sess: fresh, ch: e.ch}
	}
	o.mu.Unlock()
	return nil
}

// StartTranscription взводит мост. Повторный вызов чисто заменяет поток.
func (o *Orchestrator) StartTranscription(ctx context.Context, id string) error {
	e := o.get(id)
	if e == nil {
		return nil
	}
	if err := e.sess.Bridge.Start(ctx); err != nil {
		o.notify(err, "failed to start transcription, session "+id)
		e.ch.EmitTranscript(transcriptionFailedText)
		return err
	}
	if e.sess.State() == StateIdle {
		e.sess.setState(StateAwaitingCapture)
	}
	return nil
}

func (o *Orchestrator) FeedAudio(id string, chunk []byte) {
	if e := o.get(id); e != nil {
		e.sess.Bridge.Feed(chunk)
	}
}

func (o *Orchestrator) StopTranscription(id string) {
	if e := o.get(id); e != nil {
		e.sess.Bridge.Stop()
	}
}

// HandleUtterance — финальный транскрипт либо уже готовый текст из
// user_message. Вне AwaitingCapture/Idle реплика отбрасывается:
// single-flight на сессию, не глобальный.
func (o *Orchestrator) HandleUtterance(id, text string) {
	e := o.get(id)
	if e == nil {
		return
	}
	if !e.sess.tryBeginProcessing() {
		log.Printf("[orchestrator] %s utterance dropped in state %s", id, e.sess.State())
		return
	}

	go o.process(id, e, text)
}

func (o *Orchestrator) process(id string, e *entry, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), completionCallTimeout)
	defer cancel()

	res, err := o.engine.SubmitTurn(ctx, e.sess, text)
	if err != nil {
		o.notify(err, "generation failed, session "+id)
		e.ch.EmitReply(fallbackReplyText)
		e.sess.endProcessing(StateAwaitingCapture)
		return
	}

	switch res.Kind {
	case KindTurn:
		e.ch.EmitReply(res.Text)
		e.ch.PauseCapture()
		e.sess.setCapturePaused(true)

		o.speak(ctx, id, e, res.Text)

		// запись откроется после оценочной паузы, даже если озвучка упала
		e.sess.endProcessing(StateSpeaking)
		e.sess.Pacer.ScheduleResume(speech.EstimateDuration(res.Text), func() {
			o.resume(id)
		})

	case KindFeedback:
		// терминальный ход: запись не возобновляется, сессия закончена
		e.ch.EmitReply(res.Text)
		o.speak(ctx, id, e, res.Text)
		e.sess.endProcessing(StateClosed)

	default:
		e.sess.endProcessing(StateAwaitingCapture)
	}
}

// speak синтезирует и отправляет аудио. Текст уже ушёл: сбой синтеза
// ход не ломает, клиент просто остаётся без озвучки.
func (o *Orchestrator) speak(ctx context.Context, id string, e *entry, text string) {
	audio, err := o.synth.Synthesize(ctx, text)
	if err != nil {
		log.Printf("[orchestrator] %s synthesis: %v", id, err)
		o.notify(err, "synthesis failed, session "+id)
		return
	}
	e.ch.EmitAudio(base64.StdEncoding.EncodeToString(audio))
}

func (o *Orchestrator) resume(id string) {
	e := o.get(id)
	if e == nil {
		return
	}
	if !e.sess.beginResume() {
		return
	}
	e.ch.ResumeCapture()
}

// Disconnect снимает сессию: отменяет пейсер, глушит мост, убирает
// запись из таблицы и в фоне архивирует стенограмму.
func (o *Orchestrator) Disconnect(id string) {
	o.mu.Lock()
	e, ok := o.sessions[id]
	delete(o.sessions, id)
	o.mu.Unlock()
	if !ok {
		return
	}

	e.sess.Pacer.Cancel()
	e.sess.Bridge.Stop()
	e.sess.setState(StateClosed)
	log.Printf("[orchestrator] 🔴 disconnected %s (session %s)", id, e.sess.ID)

	if o.archiver == nil {
		return
	}
	turns := e.sess.History()
	if e.sess.TurnCount() == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := o.archiver.SaveTranscript(ctx, e.sess.ID, turns); err != nil {
			log.Printf("[orchestrator] archive %s: %v", e.sess.ID, err)
		}
	}()
}

// Session отдаёт живую сессию по id соединения (для delivery и тестов).
func (o *Orchestrator) Session(id string) *Session {
	if e := o.get(id); e != nil {
		return e.sess
	}
	return nil
}

func (o *Orchestrator) get(id string) *entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessions[id]
}

func (o *Orchestrator) notify(err error, details string) {
	if o.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if nerr := o.notifier.Notify(ctx, err, details); nerr != nil {
		log.Printf("[orchestrator] notify failed: %v", nerr)
	}
}
