package archive

import (
	"context"
	"io"
)

type Uploader interface {
	// PutObject загружает объект и возвращает публичный URL
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
