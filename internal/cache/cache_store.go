package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

// CacheItem представляет кэшированный результат агрегации одной папки.
type CacheItem struct {
	Messages  []domain.EnrichedMessage
	ExpiresAt time.Time
}

// CacheStore управляет хранением и извлечением кэшированных результатов
// агрегации. Кэш живет только в памяти процесса: повторная загрузка той
// же папки в рамках одной сессии не перечитывает файлы с диска.
type CacheStore struct {
	cache map[string]*CacheItem
	mutex sync.RWMutex
}

// NewCacheStore создает новый экземпляр CacheStore.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		cache: make(map[string]*CacheItem),
	}
}

// Get извлекает кэшированный элемент по его ключу (хешу папки).
func (cs *CacheStore) Get(key string) (*CacheItem, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	item, exists := cs.cache[key]
	if !exists || time.Now().After(item.ExpiresAt) {
		// Элемент не существует или срок его действия истек
		return nil, false
	}

	return item, true
}

// Put сохраняет агрегированную коллекцию в кэш с указанным сроком действия.
func (cs *CacheStore) Put(key string, messages []domain.EnrichedMessage, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache[key] = &CacheItem{
		Messages:  messages,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// CleanupExpired удаляет просроченные элементы из кэша.
func (cs *CacheStore) CleanupExpired() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	now := time.Now()
	for key, item := range cs.cache {
		if now.After(item.ExpiresAt) {
			delete(cs.cache, key)
		}
	}
}

// StartCleanupTicker запускает таймер для периодической очистки
// просроченных элементов.
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}

// FolderKey вычисляет ключ кэша для набора файлов папки: SHA256 от
// относительного пути, размера и времени изменения каждого файла.
// Содержимое файлов не читается — ключ должен быть дешёвым. Размер и
// время изменения отличают разные экспорты в одинаково названных
// папках и свежевыгруженный экспорт поверх старого пути. Файл, который
// не удалось прочитать со stat, вносит в ключ нулевые значения.
func FolderKey(files []domain.ArchiveFile) string {
	hasher := sha256.New()
	for _, f := range files {
		var size, modTime int64
		if info, err := os.Stat(f.AbsolutePath); err == nil {
			size = info.Size()
			modTime = info.ModTime().UnixNano()
		}
		fmt.Fprintf(hasher, "%s|%d|%d\n", f.RelativePath, size, modTime)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}
