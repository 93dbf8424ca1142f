package delivery

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Имена событий канала — контракт с клиентом, совпадает по обе стороны.
const (
	evStartSession       = "start_session"
	evUserMessage        = "user_message"
	evStartTranscription = "start_transcription"
	evAudioChunk         = "audio_chunk"
	evStopTranscription  = "stop_transcription"

	evTranscription = "transcription"
	evGptReply      = "gpt_reply"
	evGptAudio      = "gpt_audio"
	evPauseCapture  = "pause_transcription"
	evResumeCapture = "resume_transcription"
)

// inboundEvent — одно сообщение клиента.
type inboundEvent struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	Data       string          `json:"data,omitempty"` // base64 PCM для audio_chunk
	ScenarioID string          `json:"scenario_id,omitempty"`
	Scenario   json.RawMessage `json:"scenario,omitempty"`
}

type outboundEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// wsChannel — исходящая сторона websocket-сессии. Писать в gorilla-сокет
// можно только из одной горутины за раз, поэтому запись под мьютексом.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsChannel) send(ev outboundEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(ev); err != nil {
		log.Printf("[ws] write %s failed: %v", ev.Type, err)
	}
}

func (c *wsChannel) EmitTranscript(text string) { c.send(outboundEvent{Type: evTranscription, Text: text}) }
func (c *wsChannel) EmitReply(text string)      { c.send(outboundEvent{Type: evGptReply, Text: text}) }
func (c *wsChannel) EmitAudio(b64 string)       { c.send(outboundEvent{Type: evGptAudio, Data: b64}) }
func (c *wsChannel) PauseCapture()              { c.send(outboundEvent{Type: evPauseCapture}) }
func (c *wsChannel) ResumeCapture()             { c.send(outboundEvent{Type: evResumeCapture}) }
