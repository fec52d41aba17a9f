package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/exporter"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/parser"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/source"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/cache"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/core/services"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/pkg/config"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{Host: "127.0.0.1", Port: 0},
		Ingestion: config.Ingestion{
			ChunkSizeKiB:    512,
			ArchiveTTLHours: 1,
			CacheTTLMinutes: 10,
		},
		Search: config.Search{ResultLimit: 50},
		Render: config.Render{EstimatedItemHeight: 100, Overscan: 2},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	aggregator := services.NewMessageAggregationService(
		parser.NewJSONParser(),
		services.NewRecordEnrichmentService(services.WithLocation(time.UTC)),
	)
	demo := services.NewMessageAggregationService(
		parser.NewJSONParser(),
		services.NewRecordEnrichmentService(services.WithRepairer(nil), services.WithLocation(time.UTC)),
		services.WithSourceOpener(func(domain.ArchiveFile) ports.DataSource {
			return source.NewDemoSource()
		}),
	)

	srv, err := New(testConfig(), Deps{
		Store:      NewArchiveStore(),
		CacheStore: cache.NewCacheStore(),
		Validator:  services.NewFolderValidationService(),
		Aggregator: aggregator,
		Demo:       demo,
		Extractor:  services.NewParticipantExtractionService(),
		Search:     services.NewSearchService(services.WithSearchLocation(time.UTC)),
		Excel:      exporter.NewExcelExporter(),
	})
	require.NoError(t, err)
	return srv
}

// writeArchiveFolder раскладывает на диске папку беседы с файлом
// сообщений и медиа-папкой.
func writeArchiveFolder(t *testing.T, messagesJSON string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "my_chat_abc")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "message_1.json"), []byte(messagesJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "img.jpg"), []byte("jpeg"), 0o644))
	return root
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.HTTPServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// loadArchive запускает загрузку папки и ждет завершения.
func loadArchive(t *testing.T, srv *Server, root string) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/archives", map[string]string{"path": root})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		ArchiveID string `json:"archive_id"`
	}
	decodeBody(t, rec, &resp)
	require.NotEmpty(t, resp.ArchiveID)

	require.Eventually(t, func() bool {
		archive, err := srv.store.Get(resp.ArchiveID)
		if err != nil {
			return false
		}
		return archive.Status == ArchiveStatusCompleted || archive.Status == ArchiveStatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	archive, err := srv.store.Get(resp.ArchiveID)
	require.NoError(t, err)
	require.Equal(t, ArchiveStatusCompleted, archive.Status, "load failed: %s", archive.ErrorMessage)
	return resp.ArchiveID
}

const testArchiveJSON = `{
	"participants": [{"name": "Alice"}, {"name": "Bob"}],
	"messages": [
		{"sender_name": "Bob", "timestamp_ms": 200, "content": "the cat sat"},
		{"sender_name": "Alice", "timestamp_ms": 100, "content": "hello there"}
	],
	"title": "Alice and Bob"
}`

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_LoadArchive(t *testing.T) {
	t.Run("Корректная папка загружается до конца", func(t *testing.T) {
		srv := newTestServer(t)
		root := writeArchiveFolder(t, testArchiveJSON)

		archiveID := loadArchive(t, srv, root)

		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var status struct {
			Status       string `json:"status"`
			ChatFolder   string `json:"chat_folder"`
			MessageCount int    `json:"message_count"`
		}
		decodeBody(t, rec, &status)
		assert.Equal(t, "completed", status.Status)
		assert.Equal(t, "my_chat_abc", status.ChatFolder)
		assert.Equal(t, 2, status.MessageCount)
	})

	t.Run("Пустое тело запроса отклоняется", func(t *testing.T) {
		srv := newTestServer(t)

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/archives", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Папка без файлов сообщений отклоняется сразу", func(t *testing.T) {
		srv := newTestServer(t)

		root := filepath.Join(t.TempDir(), "empty_chat")
		require.NoError(t, os.MkdirAll(root, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644))

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/archives", map[string]string{"path": root})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Статус неизвестного архива дает 404", func(t *testing.T) {
		srv := newTestServer(t)

		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/nope/", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_LoadDemo(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/archives/demo", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		ArchiveID string `json:"archive_id"`
	}
	decodeBody(t, rec, &resp)

	require.Eventually(t, func() bool {
		archive, err := srv.store.Get(resp.ArchiveID)
		return err == nil && archive.Status != ArchiveStatusPending && archive.Status != ArchiveStatusProcessing
	}, 5*time.Second, 10*time.Millisecond)

	archive, err := srv.store.Get(resp.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, ArchiveStatusCompleted, archive.Status, "demo load failed: %s", archive.ErrorMessage)
	assert.NotEmpty(t, archive.Messages)
}

func TestServer_Messages(t *testing.T) {
	srv := newTestServer(t)
	archiveID := loadArchive(t, srv, writeArchiveFolder(t, testArchiveJSON))

	t.Run("Сообщения возвращаются в хронологическом порядке", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/messages", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Messages []struct {
				SenderName  string `json:"sender_name"`
				TimestampMS int64  `json:"timestamp_ms"`
			} `json:"messages"`
		}
		decodeBody(t, rec, &resp)
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, "Alice", resp.Messages[0].SenderName)
		assert.Equal(t, "Bob", resp.Messages[1].SenderName)
	})

	t.Run("Страница за пределами коллекции пуста", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/messages?page=99", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Messages []json.RawMessage `json:"messages"`
		}
		decodeBody(t, rec, &resp)
		assert.Empty(t, resp.Messages)
	})

	t.Run("Неположительные параметры страницы отклоняются", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/messages?page=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Search(t *testing.T) {
	srv := newTestServer(t)
	archiveID := loadArchive(t, srv, writeArchiveFolder(t, testArchiveJSON))

	t.Run("Поиск по содержимому", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/search?q=cat", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Matches []struct {
				Content string `json:"content"`
			} `json:"matches"`
			FilteredCount int  `json:"filtered_count"`
			Truncated     bool `json:"truncated"`
		}
		decodeBody(t, rec, &resp)
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, "the cat sat", resp.Matches[0].Content)
		assert.Equal(t, 1, resp.FilteredCount)
		assert.False(t, resp.Truncated)
	})

	t.Run("Некорректная дата отклоняется", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/search?start=14-11-2023", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Participants(t *testing.T) {
	srv := newTestServer(t)
	archiveID := loadArchive(t, srv, writeArchiveFolder(t, testArchiveJSON))

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/participants", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Participants []string `json:"participants"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, []string{"Alice", "Bob"}, resp.Participants)
}

func TestServer_Window(t *testing.T) {
	srv := newTestServer(t)

	// 30 сообщений, чтобы окно было меньше коллекции.
	var msgs []string
	for i := 0; i < 30; i++ {
		msgs = append(msgs, fmt.Sprintf(`{"sender_name":"A","timestamp_ms":%d,"content":"msg %d"}`, (i+1)*100, i))
	}
	payload := `{"messages":[` + joinJSON(msgs) + `]}`
	archiveID := loadArchive(t, srv, writeArchiveFolder(t, payload))

	t.Run("Окно покрывает видимую область", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/window?scroll_top=0&viewport_height=300", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Start       int `json:"start"`
			End         int `json:"end"`
			TotalExtent int `json:"total_extent"`
			TotalCount  int `json:"total_count"`
			Items       []struct {
				Index   int `json:"index"`
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"items"`
		}
		decodeBody(t, rec, &resp)
		assert.Equal(t, 0, resp.Start)
		assert.Equal(t, 30, resp.TotalCount)
		assert.Equal(t, 30*100, resp.TotalExtent)
		require.NotEmpty(t, resp.Items)
		assert.Equal(t, "msg 0", resp.Items[0].Message.Content)
	})

	t.Run("Измеренные высоты меняют протяженность", func(t *testing.T) {
		body := map[string]interface{}{
			"measurements": []map[string]int{{"index": 0, "height": 250}},
		}
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/archives/"+archiveID+"/window/measurements", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Changed     bool `json:"changed"`
			TotalExtent int  `json:"total_extent"`
		}
		decodeBody(t, rec, &resp)
		assert.True(t, resp.Changed)
		assert.Equal(t, 29*100+250, resp.TotalExtent)
	})

	t.Run("Переход к сообщению центрирует его", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/window/scroll-to/0?viewport_height=300", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			ScrollTop int `json:"scroll_top"`
		}
		decodeBody(t, rec, &resp)
		assert.Equal(t, 0, resp.ScrollTop)
	})

	t.Run("Индекс вне представления отклоняется", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/window/scroll-to/999", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Окно с фильтром показывает только совпадения", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/window?q=msg+7", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			TotalCount int `json:"total_count"`
		}
		decodeBody(t, rec, &resp)
		assert.Equal(t, 1, resp.TotalCount)
	})
}

func TestServer_Media(t *testing.T) {
	srv := newTestServer(t)
	archiveID := loadArchive(t, srv, writeArchiveFolder(t, testArchiveJSON))

	t.Run("Медиа-файл отдается по имени", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/media/photos/img.jpg", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jpeg", rec.Body.String())
	})

	t.Run("Неизвестное имя дает 404", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/media/photos/missing.jpg", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Неизвестная категория дает 404", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/"+archiveID+"/media/stickers/img.jpg", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Export(t *testing.T) {
	srv := newTestServer(t)
	archiveID := loadArchive(t, srv, writeArchiveFolder(t, testArchiveJSON))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/archives/"+archiveID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "my_chat_abc.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestServer_CompletedArchiveRequired(t *testing.T) {
	srv := newTestServer(t)
	srv.store.CreateArchive("pending", time.Hour, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/archives/pending/messages", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func joinJSON(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
