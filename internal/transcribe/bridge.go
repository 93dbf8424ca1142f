package transcribe

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Bridge адаптирует push-поток аудио одной сессии в последовательность
// финальных транскриптов. Партиалы наблюдаются и отбрасываются.
type Bridge struct {
	dialer  Dialer
	onFinal func(text string)
	onError func(err error)

	mu     sync.Mutex
	stream Stream
	gen    int // поколение потока: события заменённого потока игнорируются
}

func NewBridge(dialer Dialer, onFinal func(string), onError func(error)) *Bridge {
	return &Bridge{
		dialer:  dialer,
		onFinal: onFinal,
		onError: onError,
	}
}

// Start открывает свежий поток распознавания. Уже активный поток
// закрывается и заменяется без утечки слушателей.
func (b *Bridge) Start(ctx context.Context) error {
	stream, err := b.dialer.Dial(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	old := b.stream
	b.gen++
	gen := b.gen
	b.stream = stream
	b.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	go b.pump(gen, stream)
	return nil
}

// Feed дописывает сырые байты в активный поток. Без активного потока —
// no-op: клиент может дослать пару чанков после stop.
func (b *Bridge) Feed(chunk []byte) {
	b.mu.Lock()
	stream := b.stream
	b.mu.Unlock()

	if stream == nil || len(chunk) == 0 {
		return
	}
	if err := stream.Send(chunk); err != nil {
		log.Printf("[transcribe] feed failed: %v", err)
	}
}

// Stop мягко закрывает входную сторону, чтобы сервис дожал последний
// финальный результат.
func (b *Bridge) Stop() {
	b.mu.Lock()
	stream := b.stream
	b.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
}

func (b *Bridge) pump(gen int, stream Stream) {
	for ev := range stream.Results() {
		if !ev.IsFinal || strings.TrimSpace(ev.Text) == "" {
			continue
		}
		if b.isCurrent(gen) {
			b.onFinal(ev.Text)
		}
	}

	b.release(gen)

	// одна терминальная ошибка на поток; ретраи — забота вызывающего
	if err, ok := <-stream.Errs(); ok && err != nil && gen == b.currentGen() {
		b.onError(err)
	}
}

func (b *Bridge) isCurrent(gen int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return gen == b.gen
}

func (b *Bridge) currentGen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *Bridge) release(gen int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen == b.gen {
		b.stream = nil
	}
}
