package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pitchlab/salescoach/internal/session"
)

// Service сохраняет стенограммы завершённых сессий — тренеру есть что
// разобрать после тренировки.
type Service struct {
	uploader Uploader
}

func NewService(uploader Uploader) *Service {
	return &Service{uploader: uploader}
}

type transcriptDoc struct {
	SessionID string         `json:"session_id"`
	SavedAt   time.Time      `json:"saved_at"`
	Turns     []session.Turn `json:"turns"`
}

func (s *Service) SaveTranscript(ctx context.Context, sessionID string, turns []session.Turn) (string, error) {
	doc := transcriptDoc{
		SessionID: sessionID,
		SavedAt:   time.Now(),
		Turns:     turns,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	key := fmt.Sprintf("transcripts/%s/%s.json", doc.SavedAt.Format("2006-01-02"), sessionID)
	return s.uploader.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json")
}
