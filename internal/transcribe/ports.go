package transcribe

import "context"

// Event — одно событие распознавания. Партиалы наружу не выходят,
// мост пропускает только финальные реплики.
type Event struct {
	Text    string
	IsFinal bool
}

// Stream — один живой поток распознавания.
type Stream interface {
	// Send дописывает сырые PCM-байты в поток.
	Send(chunk []byte) error
	// Close закрывает входную сторону, сервис дожимает финальный результат.
	Close() error
	// Results закрывается, когда поток закончился (штатно или с ошибкой).
	Results() <-chan Event
	// Errs отдаёт терминальную ошибку потока, если она была, и закрывается.
	Errs() <-chan error
}

// Dialer открывает поток к внешнему сервису распознавания.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}
