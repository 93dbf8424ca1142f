package speech

import "context"

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error) // текст → голос
}

// SynthesisError — озвучка не удалась; текстовый ответ при этом всё равно уходит.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string { return "synthesis failed: " + e.Err.Error() }
func (e *SynthesisError) Unwrap() error { return e.Err }
