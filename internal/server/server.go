package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/exporter"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/source"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/cache"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/core/services"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/pkg/config"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/render"
)

// dateParamLayout — формат дат в параметрах запроса.
const dateParamLayout = "2006-01-02"

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	store      *ArchiveStore
	cacheStore *cache.CacheStore
	validator  ports.ValidationService
	aggregator ports.AggregationService
	demo       ports.AggregationService
	extractor  ports.ExtractionService
	search     *services.SearchService
	excel      *exporter.ExcelExporter
}

// Deps — зависимости сервера.
type Deps struct {
	Store      *ArchiveStore
	CacheStore *cache.CacheStore
	Validator  ports.ValidationService
	Aggregator ports.AggregationService
	Demo       ports.AggregationService
	Extractor  ports.ExtractionService
	Search     *services.SearchService
	Excel      *exporter.ExcelExporter
}

// New создает новый экземпляр Server
func New(cfg *config.Config, deps Deps) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		store:      deps.Store,
		cacheStore: deps.CacheStore,
		validator:  deps.Validator,
		aggregator: deps.Aggregator,
		demo:       deps.Demo,
		extractor:  deps.Extractor,
		search:     deps.Search,
		excel:      deps.Excel,
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/archives", s.handleLoadArchive)
		r.Post("/archives/demo", s.handleLoadDemo)
		r.Route("/archives/{archiveID}", func(r chi.Router) {
			r.Get("/", s.handleArchiveStatus)
			r.Get("/messages", s.handleMessages)
			r.Get("/search", s.handleSearch)
			r.Get("/participants", s.handleParticipants)
			r.Get("/window", s.handleWindow)
			r.Post("/window/measurements", s.handleMeasurements)
			r.Get("/window/scroll-to/{index}", s.handleScrollTo)
			r.Get("/media/{category}/{name}", s.handleMedia)
			r.Post("/export", s.handleExport)
		})
	})

	s.HTTPServer = &http.Server{
		Addr:    cfg.Address(),
		Handler: chiRouter,
	}
	return s, nil
}

// handleLoadArchive проверяет выбранную папку и запускает асинхронную
// загрузку архива. Ошибки проверки папки возвращаются сразу, до начала
// какой-либо обработки; сама загрузка отчитывается через статус сессии.
func (s *Server) handleLoadArchive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "failed to decode request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	files, err := source.ListFolder(req.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	folder, err := s.validator.ValidateFolder(files)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	archiveID := uuid.NewString()
	ingestCtx, cancel := context.WithCancel(context.Background())
	s.store.CreateArchive(archiveID, s.cfg.ArchiveTTL(), cancel)

	go s.ingest(ingestCtx, archiveID, folder, s.aggregator)

	writeJSON(w, http.StatusAccepted, map[string]string{"archive_id": archiveID})
}

// handleLoadDemo загружает встроенный демо-архив тем же конвейером, но
// без починки кодировки: демо-данные уже закодированы корректно.
func (s *Server) handleLoadDemo(w http.ResponseWriter, r *http.Request) {
	archiveID := uuid.NewString()
	ingestCtx, cancel := context.WithCancel(context.Background())
	s.store.CreateArchive(archiveID, s.cfg.ArchiveTTL(), cancel)

	folder := &domain.ValidatedFolder{
		ChatFolder: source.DemoChatFolder,
		MessageFiles: []domain.ArchiveFile{
			{RelativePath: source.DemoChatFolder + "/demo.json"},
		},
	}
	go s.ingest(ingestCtx, archiveID, folder, s.demo)

	writeJSON(w, http.StatusAccepted, map[string]string{"archive_id": archiveID})
}

// ingest выполняет загрузку архива: кэш, агрегация с прогрессом,
// производные данные. Любая ошибка переводит сессию в 'failed' одним
// уведомлением; отмена означает, что загрузку вытеснила более новая.
func (s *Server) ingest(ctx context.Context, archiveID string, folder *domain.ValidatedFolder, aggregator ports.AggregationService) {
	if err := s.store.UpdateStatus(archiveID, ArchiveStatusProcessing); err != nil {
		slog.Error("failed to mark archive as processing", "archive_id", archiveID, "error", err)
		return
	}

	key := cache.FolderKey(folder.MessageFiles)
	var messages []domain.EnrichedMessage
	if item, found := s.cacheStore.Get(key); found {
		slog.Info("cache hit for folder", "archive_id", archiveID, "chat_folder", folder.ChatFolder)
		messages = item.Messages
	} else {
		var err error
		messages, err = aggregator.Aggregate(ctx, folder.MessageFiles, func(processed, total int) {
			if updateErr := s.store.UpdateProgress(archiveID, processed, total); updateErr != nil {
				slog.Warn("failed to update progress", "archive_id", archiveID, "error", updateErr)
			}
		})
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("archive load superseded", "archive_id", archiveID)
				_ = s.store.Fail(archiveID, "load superseded by a newer archive")
				return
			}
			slog.Error("archive load failed", "archive_id", archiveID, "error", err)
			_ = s.store.Fail(archiveID, err.Error())
			return
		}
		s.cacheStore.Put(key, messages, s.cfg.CacheTTL())
	}

	participants := s.extractor.ExtractParticipants(messages)
	structure := s.validator.BuildFolderStructure(folder.AllFiles)

	if err := s.store.Complete(archiveID, folder.ChatFolder, messages, participants, structure); err != nil {
		slog.Error("failed to complete archive", "archive_id", archiveID, "error", err)
		return
	}
	slog.Info("archive loaded", "archive_id", archiveID, "chat_folder", folder.ChatFolder, "message_count", len(messages))
}

// handleArchiveStatus возвращает статус и прогресс загрузки.
func (s *Server) handleArchiveStatus(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.archiveFromRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"archive_id":    archive.ID,
		"status":        archive.Status,
		"progress":      archive.Progress,
		"chat_folder":   archive.ChatFolder,
		"message_count": len(archive.Messages),
		"error_message": archive.ErrorMessage,
	})
}

// handleMessages возвращает страницу агрегированной коллекции.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)
	if page < 1 || pageSize < 1 {
		http.Error(w, "page and page_size must be positive", http.StatusBadRequest)
		return
	}

	total := len(archive.Messages)
	offset := (page - 1) * pageSize
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": archive.Messages[offset:end],
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": (total + pageSize - 1) / pageSize,
		},
	})
}

// handleSearch выполняет запрос к поисковому движку: ограниченный
// список совпадений для мгновенного показа плюс размер полного
// отфильтрованного представления.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.search.Search(archive.Messages, filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches":        result.Matches,
		"truncated":      result.Truncated,
		"filtered_count": len(result.Filtered),
	})
}

// handleParticipants возвращает отсортированный список уникальных
// отправителей.
func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"participants": archive.Participants})
}

// handleWindow возвращает план оконной отрисовки для текущей позиции
// прокрутки поверх отфильтрованного представления.
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	scrollTop := queryInt(r, "scroll_top", 0)
	viewportHeight := queryInt(r, "viewport_height", 600)

	planner, filtered, err := s.view(archive, filter)
	if err != nil {
		http.Error(w, "archive not found", http.StatusNotFound)
		return
	}

	plan := planner.Plan(scrollTop, viewportHeight)
	items := make([]map[string]interface{}, 0, len(plan.Items))
	for _, item := range plan.Items {
		items = append(items, map[string]interface{}{
			"index":   item.Index,
			"offset":  item.Offset,
			"height":  item.Height,
			"message": archive.Messages[filtered[item.Index]],
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"start":        plan.Start,
		"end":          plan.End,
		"total_extent": plan.TotalExtent,
		"total_count":  len(filtered),
		"items":        items,
	})
}

// handleMeasurements принимает измеренные высоты элементов окна.
func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	var req struct {
		Measurements []struct {
			Index  int `json:"index"`
			Height int `json:"height"`
		} `json:"measurements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "failed to decode request body", http.StatusBadRequest)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	planner, _, err := s.view(archive, filter)
	if err != nil {
		http.Error(w, "archive not found", http.StatusNotFound)
		return
	}

	changed := false
	for _, m := range req.Measurements {
		if planner.SetMeasuredHeight(m.Index, m.Height) {
			changed = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"changed":      changed,
		"total_extent": planner.TotalExtent(),
	})
}

// handleScrollTo возвращает позицию прокрутки, центрирующую элемент, —
// переход к сообщению из результатов поиска.
func (s *Server) handleScrollTo(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	viewportHeight := queryInt(r, "viewport_height", 600)

	planner, filtered, err := s.view(archive, filter)
	if err != nil {
		http.Error(w, "archive not found", http.StatusNotFound)
		return
	}
	if index < 0 || index >= len(filtered) {
		http.Error(w, "index out of range", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scroll_top": planner.ScrollToIndex(index, viewportHeight),
	})
}

// handleMedia отдает медиа-файл из карты структуры папки. Файл
// открывается и закрывается в пределах одного запроса: это и есть
// захват и освобождение ресурса предпросмотра.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	category := domain.MediaCategory(chi.URLParam(r, "category"))
	name := chi.URLParam(r, "name")

	byName, exists := archive.Structure[category]
	if !exists {
		http.Error(w, "unknown media category", http.StatusNotFound)
		return
	}
	absPath, exists := byName[name]
	if !exists {
		http.Error(w, "media file not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, absPath)
}

// handleExport записывает отфильтрованное представление в книгу XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	archive, ok := s.completedArchive(w, r)
	if !ok {
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := s.search.Search(archive.Messages, filter)

	selected := make([]domain.EnrichedMessage, len(result.Filtered))
	for i, idx := range result.Filtered {
		selected[i] = archive.Messages[idx]
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.ChatFolder+".xlsx"))
	if err := s.excel.Write(w, selected); err != nil {
		slog.Error("failed to export archive", "archive_id", archive.ID, "error", err)
	}
}

// view возвращает планировщик окна для данного фильтра, перестраивая
// его при смене фильтра.
func (s *Server) view(archive *Archive, filter services.Filter) (*render.Planner, []int, error) {
	return s.store.View(archive.ID, filterKey(filter), s.cfg.Render.EstimatedItemHeight, s.cfg.Render.Overscan, func() []int {
		return s.search.Search(archive.Messages, filter).Filtered
	})
}

// archiveFromRequest извлекает сессию архива из URL.
func (s *Server) archiveFromRequest(w http.ResponseWriter, r *http.Request) (*Archive, bool) {
	archiveID := chi.URLParam(r, "archiveID")
	archive, err := s.store.Get(archiveID)
	if err != nil {
		http.Error(w, "archive not found", http.StatusNotFound)
		return nil, false
	}
	return archive, true
}

// completedArchive извлекает сессию и требует завершённой загрузки.
func (s *Server) completedArchive(w http.ResponseWriter, r *http.Request) (*Archive, bool) {
	archive, ok := s.archiveFromRequest(w, r)
	if !ok {
		return nil, false
	}
	if archive.Status != ArchiveStatusCompleted {
		http.Error(w, "archive load is not completed", http.StatusConflict)
		return nil, false
	}
	return archive, true
}

// filterFromQuery разбирает параметры фильтра из запроса.
func filterFromQuery(r *http.Request) (services.Filter, error) {
	filter := services.Filter{
		Query:     r.URL.Query().Get("q"),
		WholeWord: r.URL.Query().Get("whole_word") == "true",
	}

	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.ParseInLocation(dateParamLayout, raw, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid start date %q, expected YYYY-MM-DD", raw)
		}
		filter.StartDate = &t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.ParseInLocation(dateParamLayout, raw, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid end date %q, expected YYYY-MM-DD", raw)
		}
		filter.EndDate = &t
	}

	return filter, nil
}

// filterKey строит канонический ключ представления для фильтра.
func filterKey(filter services.Filter) string {
	start, end := "", ""
	if filter.StartDate != nil {
		start = filter.StartDate.Format(dateParamLayout)
	}
	if filter.EndDate != nil {
		end = filter.EndDate.Format(dateParamLayout)
	}
	return fmt.Sprintf("q=%s|w=%t|s=%s|e=%s", filter.Query, filter.WholeWord, start, end)
}

// queryInt разбирает целочисленный параметр запроса со значением по
// умолчанию.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// writeJSON сериализует ответ и логирует ошибку записи.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

