package delivery

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pitchlab/salescoach/internal/scenario"
	"github.com/pitchlab/salescoach/internal/session"
)

// WSHandler поднимает websocket и держит read loop одного соединения.
// Вся логика диалога живёт в оркестраторе, здесь только транспорт.
type WSHandler struct {
	orch      *session.Orchestrator
	scenarios scenario.Service
	upgrader  websocket.Upgrader
	log       *logger.ZapLogger
}

func NewWSHandler(orch *session.Orchestrator, scenarios scenario.Service, log *logger.ZapLogger) *WSHandler {
	return &WSHandler{
		orch:      orch,
		scenarios: scenarios,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			// Use specific origin in production
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "ws upgrade failed", Error: err})
		return
	}

	id := uuid.NewString()
	ch := &wsChannel{conn: conn}

	// сессия живёт сразу, с дефолтной персоной; start_session — опционален
	if _, err := h.orch.Connect(id, scenario.Default(), ch); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "session init failed", Error: err})
		conn.Close()
		return
	}

	defer func() {
		h.orch.Disconnect(id)
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		// бинарный фрейм — сырые PCM-байты, минуя JSON-обёртку
		if msgType == websocket.BinaryMessage {
			h.orch.FeedAudio(id, data)
			continue
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			h.log.Log(logger.LogEntry{Level: "warn", Message: "bad ws event", Error: err})
			continue
		}

		h.dispatch(r, id, ev)
	}
}

func (h *WSHandler) dispatch(r *http.Request, id string, ev inboundEvent) {
	switch ev.Type {
	case evStartSession:
		sc, err := h.resolveScenario(r, ev)
		if err != nil {
			h.log.Log(logger.LogEntry{Level: "warn", Message: "start_session rejected", Error: err})
			return
		}
		if err := h.orch.Configure(id, sc); err != nil {
			h.log.Log(logger.LogEntry{Level: "warn", Message: "start_session failed", Error: err})
		}

	case evUserMessage:
		if ev.Text != "" {
			h.orch.HandleUtterance(id, ev.Text)
		}

	case evStartTranscription:
		_ = h.orch.StartTranscription(r.Context(), id)

	case evAudioChunk:
		chunk, err := base64.StdEncoding.DecodeString(ev.Data)
		if err != nil {
			return
		}
		h.orch.FeedAudio(id, chunk)

	case evStopTranscription:
		h.orch.StopTranscription(id)
	}
}

// resolveScenario: либо ссылка на сохранённый сценарий, либо конфиг инлайном.
func (h *WSHandler) resolveScenario(r *http.Request, ev inboundEvent) (*scenario.Scenario, error) {
	if ev.ScenarioID != "" {
		return h.scenarios.Get(r.Context(), ev.ScenarioID)
	}
	if len(ev.Scenario) > 0 {
		var sc scenario.Scenario
		if err := json.Unmarshal(ev.Scenario, &sc); err != nil {
			return nil, err
		}
		return &sc, nil
	}
	return scenario.Default(), nil
}
