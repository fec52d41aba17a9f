package source

import (
	"context"
	"fmt"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// MemorySource реализует интерфейс DataSource для чтения данных из памяти.
type MemorySource struct {
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

var _ ports.DataSource = (*MemorySource)(nil)

// Fetch возвращает данные из памяти.
func (s *MemorySource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.data == nil {
		return nil, fmt.Errorf("no data set")
	}

	// Возвращаем копию данных, чтобы избежать изменений оригинальных данных
	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
