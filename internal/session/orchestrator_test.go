package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pitchlab/salescoach/internal/scenario"
	"github.com/pitchlab/salescoach/internal/transcribe"
)

type recChannel struct {
	mu          sync.Mutex
	transcripts []string
	replies     []string
	audio       int
	pauses      int
	resumes     int

	replyCh  chan string
	resumeCh chan struct{}
}

func newRecChannel() *recChannel {
	return &recChannel{
		replyCh:  make(chan string, 16),
		resumeCh: make(chan struct{}, 16),
	}
}

func (c *recChannel) EmitTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcripts = append(c.transcripts, text)
}

func (c *recChannel) EmitReply(text string) {
	c.mu.Lock()
	c.replies = append(c.replies, text)
	c.mu.Unlock()
	c.replyCh <- text
}

func (c *recChannel) EmitAudio(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio++
}

func (c *recChannel) PauseCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauses++
}

func (c *recChannel) ResumeCapture() {
	c.mu.Lock()
	c.resumes++
	c.mu.Unlock()
	c.resumeCh <- struct{}{}
}

func (c *recChannel) resumeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumes
}

func (c *recChannel) audioCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio
}

func (c *recChannel) lastReply(t *testing.T) string {
	t.Helper()
	select {
	case r := <-c.replyCh:
		return r
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for reply")
		return ""
	}
}

func (c *recChannel) waitResume(t *testing.T) {
	t.Helper()
	select {
	case <-c.resumeCh:
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for resume")
	}
}

type fakeSynth struct {
	err error
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3-bytes"), nil
}

type noDialer struct{}

func (noDialer) Dial(context.Context) (transcribe.Stream, error) {
	return nil, errors.New("no stt in this test")
}

type fakeArchiver struct {
	mu    sync.Mutex
	saved [][]Turn
	ch    chan struct{}
}

func newFakeArchiver() *fakeArchiver {
	return &fakeArchiver{ch: make(chan struct{}, 4)}
}

func (f *fakeArchiver) SaveTranscript(_ context.Context, _ string, turns []Turn) (string, error) {
	f.mu.Lock()
	f.saved = append(f.saved, turns)
	f.mu.Unlock()
	f.ch <- struct{}{}
	return "https://example/transcript.json", nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func newTestOrchestrator(t *testing.T, fc *fakeCompleter, synth *fakeSynth, threshold int, arch Archiver) (*Orchestrator, *recChannel, *Session) {
	t.Helper()

	o := NewOrchestrator(NewEngine(fc, threshold), synth, noDialer{}, arch, nil)
	ch := newRecChannel()

	sess, err := o.Connect("conn-1", scenario.Default(), ch)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return o, ch, sess
}

func TestOrchestrator_TurnFlow(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}} // 1 слово → пауза 400ms
	o, ch, sess := newTestOrchestrator(t, fc, &fakeSynth{}, 5, nil)

	o.HandleUtterance("conn-1", "we sell oak tables")

	if got := ch.lastReply(t); got != "ok" {
		t.Fatalf("reply = %q, want %q", got, "ok")
	}

	waitFor(t, "speaking state", func() bool { return sess.State() == StateSpeaking })
	if !sess.CapturePaused() {
		t.Fatalf("CapturePaused = false while speaking")
	}

	ch.waitResume(t)
	waitFor(t, "awaiting capture", func() bool { return sess.State() == StateAwaitingCapture })

	if sess.CapturePaused() {
		t.Fatalf("CapturePaused = true after resume")
	}
	if got := ch.audioCount(); got != 1 {
		t.Fatalf("audio events = %d, want 1", got)
	}
}

func TestOrchestrator_DropsUtteranceWhileSpeaking(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"one two three"}} // ~1.2s паузы
	o, ch, sess := newTestOrchestrator(t, fc, &fakeSynth{}, 5, nil)

	o.HandleUtterance("conn-1", "first pitch")
	ch.lastReply(t)
	waitFor(t, "speaking state", func() bool { return sess.State() == StateSpeaking })

	// реплика во время Speaking отбрасывается, не ставится в очередь
	o.HandleUtterance("conn-1", "second pitch too early")

	ch.waitResume(t)
	time.Sleep(50 * time.Millisecond)

	if got := fc.callCount(); got != 1 {
		t.Fatalf("completer calls = %d, want 1 (dropped utterance was processed)", got)
	}
	if got := sess.TurnCount(); got != 1 {
		t.Fatalf("TurnCount = %d, want 1", got)
	}
}

func TestOrchestrator_FeedbackClosesSessionWithoutResume(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"q1", "q2", "q3", "q4", "q5", "the feedback"}}
	o, ch, sess := newTestOrchestrator(t, fc, &fakeSynth{}, 5, nil)

	for i := 0; i < 4; i++ {
		o.HandleUtterance("conn-1", "pitch")
		ch.lastReply(t)
		ch.waitResume(t)
	}

	o.HandleUtterance("conn-1", "final pitch")
	if got := ch.lastReply(t); got != "the feedback" {
		t.Fatalf("final reply = %q, want feedback text", got)
	}

	waitFor(t, "closed state", func() bool { return sess.State() == StateClosed })

	resumesBefore := ch.resumeCount()
	time.Sleep(700 * time.Millisecond) // дольше оценки на 2 слова
	if got := ch.resumeCount(); got != resumesBefore {
		t.Fatalf("resume after feedback: %d → %d", resumesBefore, got)
	}

	if !sess.FeedbackIssued() {
		t.Fatalf("FeedbackIssued = false after terminal turn")
	}
	// 5 обычных вызовов + второй вызов за фидбеком
	if got := fc.callCount(); got != 6 {
		t.Fatalf("completer calls = %d, want 6", got)
	}

	// после фидбека любые реплики — no-op
	o.HandleUtterance("conn-1", "ignored")
	time.Sleep(50 * time.Millisecond)
	if got := fc.callCount(); got != 6 {
		t.Fatalf("completer called after close: %d calls", got)
	}
}

func TestOrchestrator_GenerationFailureKeepsSessionUsable(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"q1"}, failOn: 2}
	o, ch, sess := newTestOrchestrator(t, fc, &fakeSynth{}, 5, nil)

	o.HandleUtterance("conn-1", "pitch one")
	ch.lastReply(t)
	ch.waitResume(t)

	o.HandleUtterance("conn-1", "pitch two")
	if got := ch.lastReply(t); got != fallbackReplyText {
		t.Fatalf("reply = %q, want fallback text", got)
	}

	waitFor(t, "awaiting capture after failure", func() bool {
		return sess.State() == StateAwaitingCapture
	})
	if got := sess.TurnCount(); got != 1 {
		t.Fatalf("TurnCount = %d, want 1 (failed turn was counted)", got)
	}

	// после сбоя корректная реплика проходит штатно
	o.HandleUtterance("conn-1", "pitch two, corrected")
	ch.lastReply(t)
	waitFor(t, "second exchange", func() bool { return sess.TurnCount() == 2 })
}

func TestOrchestrator_SynthesisFailureStillResumes(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}}
	o, ch, sess := newTestOrchestrator(t, fc, &fakeSynth{err: errors.New("tts down")}, 5, nil)

	o.HandleUtterance("conn-1", "pitch")

	// текст уходит несмотря на сбой озвучки
	if got := ch.lastReply(t); got != "ok" {
		t.Fatalf("reply = %q, want %q", got, "ok")
	}
	ch.waitResume(t)

	if got := ch.audioCount(); got != 0 {
		t.Fatalf("audio events = %d, want 0", got)
	}
	waitFor(t, "awaiting capture", func() bool { return sess.State() == StateAwaitingCapture })
}

func TestOrchestrator_DisconnectWhileSpeakingCancelsPacer(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"one two three"}} // ~1.2s паузы
	arch := newFakeArchiver()
	o, ch, sess := newTestOrchestrator(t, fc, &fakeSynth{}, 5, arch)

	o.HandleUtterance("conn-1", "pitch")
	ch.lastReply(t)
	waitFor(t, "speaking state", func() bool { return sess.State() == StateSpeaking })

	o.Disconnect("conn-1")

	if got := sess.State(); got != StateClosed {
		t.Fatalf("state after disconnect = %v, want closed", got)
	}

	time.Sleep(1500 * time.Millisecond)
	if got := ch.resumeCount(); got != 0 {
		t.Fatalf("resume fired after disconnect: %d", got)
	}

	// стенограмма ушла в архив
	select {
	case <-arch.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("transcript was not archived")
	}

	arch.mu.Lock()
	defer arch.mu.Unlock()
	if len(arch.saved) != 1 || len(arch.saved[0]) < 4 {
		t.Fatalf("archived %d transcripts, want 1 with full history", len(arch.saved))
	}

	// повторный disconnect безопасен
	o.Disconnect("conn-1")
}
