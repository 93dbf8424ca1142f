package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
)

const deepgramLiveURL = "wss://api.deepgram.com/v1/listen" +
	"?model=nova-2&encoding=linear16&sample_rate=16000&channels=1&interim_results=true"

type DeepgramLiveClient struct {
	apiKey string
	url    string
}

func NewDeepgramLiveClient() *DeepgramLiveClient {
	key := os.Getenv("DEEPGRAM_API_KEY")
	if key == "" {
		panic("DEEPGRAM_API_KEY not set")
	}

	return &DeepgramLiveClient{
		apiKey: key,
		url:    deepgramLiveURL,
	}
}

func (c *DeepgramLiveClient) Dial(ctx context.Context) (Stream, error) {
	header := http.Header{}
	header.Set("Authorization", "Token "+c.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("deepgram dial: %w", err)
	}

	s := &deepgramStream{
		conn:    conn,
		results: make(chan Event, 8),
		errs:    make(chan error, 1),
	}
	go s.readLoop()
	return s, nil
}

type deepgramStream struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	results chan Event
	errs    chan error
}

func (s *deepgramStream) Send(chunk []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// Close просит сервис финализировать остаток аудио. Соединение закроет
// readLoop, когда сервер ответит close-фреймом.
func (s *deepgramStream) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

func (s *deepgramStream) Results() <-chan Event { return s.results }
func (s *deepgramStream) Errs() <-chan error    { return s.errs }

type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (s *deepgramStream) readLoop() {
	defer func() {
		s.conn.Close()
		close(s.errs)
		close(s.results)
	}()

	for {
		var msg deepgramMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.errs <- fmt.Errorf("deepgram stream: %w", err)
			return
		}

		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		s.results <- Event{
			Text:    msg.Channel.Alternatives[0].Transcript,
			IsFinal: msg.IsFinal,
		}
	}
}
