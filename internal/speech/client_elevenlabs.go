package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	httpCli *http.Client
}

func NewElevenLabsClient() *ElevenLabsClient {
	key := os.Getenv("ELEVENLABS_API_KEY")
	if key == "" {
		panic("ELEVENLABS_API_KEY not set")
	}

	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	if voiceID == "" {
		voiceID = "EXAVITQu4vr4xnSDxMaL" // Rachel (дефолт)
	}

	return &ElevenLabsClient{
		apiKey:  key,
		voiceID: voiceID,
		httpCli: http.DefaultClient,
	}
}

// TEXT → SPEECH, возвращает mp3 целиком.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", c.voiceID)
	payload := []byte(fmt.Sprintf(`{"text": %q}`, text))

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &SynthesisError{Err: fmt.Errorf("elevenlabs error: %s", string(b))}
	}

	// ответ приходит стримом аудио-фреймов, склеиваем в один буфер
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	return audio, nil
}
