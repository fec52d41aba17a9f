package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// DefaultChunkSize — размер одного чтения по умолчанию: 512 КиБ.
const DefaultChunkSize = 512 * 1024

// ChunkSource реализует интерфейс DataSource для чтения файла с диска
// фиксированными частями. Между чтениями проверяется отмена контекста,
// поэтому заброшенная загрузка архива не дочитывает файл до конца.
type ChunkSource struct {
	filePath  string
	chunkSize int
}

// NewChunkSource создает новый экземпляр ChunkSource. Неположительный
// размер части заменяется размером по умолчанию.
func NewChunkSource(filePath string, chunkSize int) *ChunkSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkSource{filePath: filePath, chunkSize: chunkSize}
}

var _ ports.DataSource = (*ChunkSource)(nil)

// Fetch читает файл последовательно от начала до конца частями
// фиксированного размера и склеивает их в один буфер. Разбор буфера —
// забота вызывающей стороны; здесь данные не интерпретируются.
func (s *ChunkSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("file path is not set")
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", s.filePath, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	if info, err := file.Stat(); err == nil && info.Size() > 0 {
		buf.Grow(int(info.Size()))
	}

	chunk := make([]byte, s.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read of %s cancelled: %w", s.filePath, err)
		}

		n, err := file.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
		}
	}

	return buf.Bytes(), nil
}
