package transcribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStream struct {
	mu      sync.Mutex
	sent    [][]byte
	closed  bool
	results chan Event
	errs    chan error
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		results: make(chan Event, 16),
		errs:    make(chan error, 1),
	}
}

func (f *fakeStream) Send(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, chunk)
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) Results() <-chan Event { return f.results }
func (f *fakeStream) Errs() <-chan error    { return f.errs }

// finish закрывает поток так же, как это делает readLoop настоящего клиента.
func (f *fakeStream) finish(err error) {
	if err != nil {
		f.errs <- err
	}
	close(f.errs)
	close(f.results)
}

func (f *fakeStream) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeStream) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
}

func (d *fakeDialer) Dial(context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeStream()
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDialer) stream(i int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[i]
}

type recorder struct {
	mu     sync.Mutex
	finals []string
	errs   []error
}

func (r *recorder) onFinal(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, text)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.finals...), append([]error(nil), r.errs...)
}

func waitCond(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestBridge_ForwardsOnlyFinals(t *testing.T) {
	d := &fakeDialer{}
	rec := &recorder{}
	b := NewBridge(d, rec.onFinal, rec.onError)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := d.stream(0)

	// партиал, потом финал одной и той же фразы
	st.results <- Event{Text: "hello wor", IsFinal: false}
	st.results <- Event{Text: "hello world", IsFinal: true}
	st.results <- Event{Text: "", IsFinal: true} // пустые финалы тоже глотаем
	st.finish(nil)

	waitCond(t, "final transcript", func() bool {
		finals, _ := rec.snapshot()
		return len(finals) == 1
	})

	finals, errs := rec.snapshot()
	if finals[0] != "hello world" {
		t.Fatalf("final = %q, want %q", finals[0], "hello world")
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestBridge_FeedWithoutStreamIsNoop(t *testing.T) {
	b := NewBridge(&fakeDialer{}, func(string) {}, func(error) {})

	// чанки после stop — не ошибка
	b.Feed([]byte{1, 2, 3})
	b.Stop()
}

func TestBridge_FeedForwardsChunks(t *testing.T) {
	d := &fakeDialer{}
	b := NewBridge(d, func(string) {}, func(error) {})

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := d.stream(0)

	b.Feed([]byte{1})
	b.Feed(nil) // пустой чанк не шлём
	b.Feed([]byte{2, 3})

	if got := st.sentCount(); got != 2 {
		t.Fatalf("sent chunks = %d, want 2", got)
	}

	b.Stop()
	if !st.wasClosed() {
		t.Fatalf("Stop did not close the stream input")
	}
}

func TestBridge_StreamErrorIsTerminal(t *testing.T) {
	d := &fakeDialer{}
	rec := &recorder{}
	b := NewBridge(d, rec.onFinal, rec.onError)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := d.stream(0)

	st.results <- Event{Text: "half a phra", IsFinal: false}
	st.finish(errors.New("connection reset"))

	waitCond(t, "terminal error", func() bool {
		_, errs := rec.snapshot()
		return len(errs) == 1
	})

	finals, _ := rec.snapshot()
	if len(finals) != 0 {
		t.Fatalf("finals after error = %v, want none", finals)
	}

	// после ошибки поток снят: Feed — no-op, а не паника
	b.Feed([]byte{9})
	if got := st.sentCount(); got != 0 {
		t.Fatalf("chunk reached dead stream")
	}
}

func TestBridge_RestartReplacesStream(t *testing.T) {
	d := &fakeDialer{}
	rec := &recorder{}
	b := NewBridge(d, rec.onFinal, rec.onError)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}

	first, second := d.stream(0), d.stream(1)
	if !first.wasClosed() {
		t.Fatalf("restart did not close the previous stream")
	}

	// хвост старого потока не доходит до слушателя
	first.results <- Event{Text: "stale final", IsFinal: true}
	first.finish(nil)

	second.results <- Event{Text: "fresh final", IsFinal: true}
	second.finish(nil)

	waitCond(t, "fresh final", func() bool {
		finals, _ := rec.snapshot()
		return len(finals) == 1
	})

	finals, _ := rec.snapshot()
	if finals[0] != "fresh final" {
		t.Fatalf("final = %q, want %q", finals[0], "fresh final")
	}

	// ошибка заменённого потока тоже не всплывает
	time.Sleep(50 * time.Millisecond)
	if _, errs := rec.snapshot(); len(errs) != 0 {
		t.Fatalf("stale stream error surfaced: %v", errs)
	}
}
