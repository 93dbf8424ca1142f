package speech

import (
	"math"
	"strings"
	"sync"
	"time"
)

// Скорость диктора ~150 слов в минуту.
const wordsPerSecond = 2.5

// EstimateDuration — грубая оценка времени проигрывания озвученного текста.
// Округляется вверх до целой миллисекунды.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	ms := math.Ceil(float64(words) / wordsPerSecond * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Pacer взводит одноразовый таймер на возобновление записи после того,
// как клиент предположительно дослушал ответ.
type Pacer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func NewPacer() *Pacer {
	return &Pacer{}
}

// ScheduleResume заменяет уже взведённый таймер, если он есть.
func (p *Pacer) ScheduleResume(d time.Duration, onResume func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(d, onResume)
}

// Cancel безопасен при повторном вызове и после срабатывания таймера.
func (p *Pacer) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
