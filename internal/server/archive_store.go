package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/render"
)

// ArchiveStatus представляет статус загрузки архива
type ArchiveStatus string

const (
	ArchiveStatusPending    ArchiveStatus = "pending"
	ArchiveStatusProcessing ArchiveStatus = "processing"
	ArchiveStatusCompleted  ArchiveStatus = "completed"
	ArchiveStatusFailed     ArchiveStatus = "failed"
)

// Progress — счетчики прогресса загрузки: сколько файлов обработано
// из общего числа.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Archive представляет собой одну сессию загруженного архива: статус
// загрузки и, после завершения, агрегированную коллекцию с производными
// данными. Коллекция после завершения не изменяется; поисковый движок и
// оконная отрисовка только читают её.
type Archive struct {
	ID           string
	Status       ArchiveStatus
	Progress     Progress
	ChatFolder   string
	Messages     []domain.EnrichedMessage
	Participants []string
	Structure    domain.FolderStructure
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time // Для автоматической очистки

	// cancel прерывает загрузку этого архива, когда его вытесняет
	// новая загрузка.
	cancel context.CancelFunc

	// view — планировщик окна текущего отфильтрованного представления.
	// viewKey определяет, для какого фильтра он построен.
	view    *render.Planner
	viewKey string
	// filtered — индексы сообщений текущего представления.
	filtered []int
}

// ArchiveStore управляет хранением и извлечением сессий архивов.
// Хранит также идентификатор текущего архива: загрузка нового архива
// отменяет предыдущую незавершённую, чтобы устаревший результат не
// записался поверх более нового состояния.
type ArchiveStore struct {
	archives map[string]*Archive
	current  string
	mutex    sync.RWMutex
}

// NewArchiveStore создает новый экземпляр ArchiveStore
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		archives: make(map[string]*Archive),
	}
}

// CreateArchive создает новую сессию со статусом 'pending', делает её
// текущей и отменяет незавершённую предыдущую загрузку, если она была.
func (as *ArchiveStore) CreateArchive(archiveID string, ttl time.Duration, cancel context.CancelFunc) {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	if prev, exists := as.archives[as.current]; exists && prev.cancel != nil {
		if prev.Status == ArchiveStatusPending || prev.Status == ArchiveStatusProcessing {
			prev.cancel()
		}
	}

	now := time.Now()
	as.archives[archiveID] = &Archive{
		ID:        archiveID,
		Status:    ArchiveStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		cancel:    cancel,
	}
	as.current = archiveID
}

// UpdateStatus обновляет статус сессии
func (as *ArchiveStore) UpdateStatus(archiveID string, status ArchiveStatus) error {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	archive, exists := as.archives[archiveID]
	if !exists {
		return fmt.Errorf("archive %s not found", archiveID)
	}

	archive.Status = status
	return nil
}

// UpdateProgress обновляет счетчики прогресса загрузки.
func (as *ArchiveStore) UpdateProgress(archiveID string, processed, total int) error {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	archive, exists := as.archives[archiveID]
	if !exists {
		return fmt.Errorf("archive %s not found", archiveID)
	}

	archive.Progress = Progress{Processed: processed, Total: total}
	return nil
}

// Complete записывает результат загрузки и переводит сессию в 'completed'.
func (as *ArchiveStore) Complete(archiveID, chatFolder string, messages []domain.EnrichedMessage, participants []string, structure domain.FolderStructure) error {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	archive, exists := as.archives[archiveID]
	if !exists {
		return fmt.Errorf("archive %s not found", archiveID)
	}

	archive.Status = ArchiveStatusCompleted
	archive.ChatFolder = chatFolder
	archive.Messages = messages
	archive.Participants = participants
	archive.Structure = structure
	archive.cancel = nil
	return nil
}

// Fail записывает сообщение об ошибке и переводит сессию в 'failed'.
func (as *ArchiveStore) Fail(archiveID string, errorMessage string) error {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	archive, exists := as.archives[archiveID]
	if !exists {
		return fmt.Errorf("archive %s not found", archiveID)
	}

	archive.Status = ArchiveStatusFailed
	archive.ErrorMessage = errorMessage
	archive.cancel = nil
	return nil
}

// Get извлекает снимок сессии по ее ID. Возвращается копия: поля
// сессии пишет горутина загрузки под замком хранилища, и обработчики
// запросов не должны читать их без него. Коллекция сообщений после
// завершения загрузки не изменяется, поэтому копия заголовка среза
// безопасна.
func (as *ArchiveStore) Get(archiveID string) (*Archive, error) {
	as.mutex.RLock()
	defer as.mutex.RUnlock()

	archive, exists := as.archives[archiveID]
	if !exists {
		return nil, fmt.Errorf("archive %s not found", archiveID)
	}

	snapshot := *archive
	return &snapshot, nil
}

// View возвращает планировщик окна и индексы отфильтрованного
// представления для данного ключа фильтра, перестраивая их, если ключ
// изменился. build вызывается только при перестройке.
func (as *ArchiveStore) View(archiveID, viewKey string, estimatedHeight, overscan int, build func() []int) (*render.Planner, []int, error) {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	archive, exists := as.archives[archiveID]
	if !exists {
		return nil, nil, fmt.Errorf("archive %s not found", archiveID)
	}

	if archive.view == nil || archive.viewKey != viewKey {
		archive.filtered = build()
		archive.viewKey = viewKey
		archive.view = render.NewPlanner(len(archive.filtered), estimatedHeight, overscan)
	}

	return archive.view, archive.filtered, nil
}

// CleanupExpired удаляет просроченные сессии из хранилища
func (as *ArchiveStore) CleanupExpired() {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	now := time.Now()
	for archiveID, archive := range as.archives {
		if now.After(archive.ExpiresAt) {
			delete(as.archives, archiveID)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки
// просроченных сессий
func (as *ArchiveStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				as.CleanupExpired()
			}
		}
	}()
}
