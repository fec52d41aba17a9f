package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/exporter"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

type archiveStatusResponse struct {
	ArchiveID string `json:"archive_id"`
	Status    string `json:"status"`
	Progress  struct {
		Processed int `json:"processed"`
		Total     int `json:"total"`
	} `json:"progress"`
	ChatFolder   string `json:"chat_folder"`
	MessageCount int    `json:"message_count"`
	ErrorMessage string `json:"error_message"`
}

type searchResponse struct {
	Matches       []domain.EnrichedMessage `json:"matches"`
	Truncated     bool                     `json:"truncated"`
	FilteredCount int                      `json:"filtered_count"`
}

func main() {
	var (
		serverAddr string
		demo       bool
		query      string
		wholeWord  bool
		startDate  string
		endDate    string
		copyIndex  int
		exportPath string
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.BoolVar(&demo, "demo", false, "Load the bundled demo archive instead of a folder")
	flag.StringVar(&query, "query", "", "Search query to run after the archive is loaded")
	flag.BoolVar(&wholeWord, "whole-word", false, "Match the query as a whole word")
	flag.StringVar(&startDate, "from", "", "Start date filter (YYYY-MM-DD)")
	flag.StringVar(&endDate, "to", "", "End date filter (YYYY-MM-DD)")
	flag.IntVar(&copyIndex, "copy", 0, "Copy the content of the N-th search result to the clipboard (1-based)")
	flag.StringVar(&exportPath, "export", "", "Write the filtered messages to this XLSX file")
	flag.Parse()

	// Запуск загрузки архива
	var archiveID string
	if demo {
		archiveID = startLoad(serverAddr, "/api/v1/archives/demo", nil)
	} else {
		folder := flag.Arg(0)
		if folder == "" {
			log.Fatal("A folder path is required. Usage: client [flags] <folder>")
		}
		abs, err := filepath.Abs(folder)
		if err != nil {
			log.Fatalf("Не удалось определить абсолютный путь: %v", err)
		}
		archiveID = startLoad(serverAddr, "/api/v1/archives", map[string]string{"path": abs})
	}

	fmt.Printf("Архив загружается, идентификатор: %s\n", archiveID)

	// Опрос статуса с показом прогресса
	status := pollStatus(serverAddr, archiveID)
	fmt.Printf("Беседа %q: %d сообщений\n", status.ChatFolder, status.MessageCount)

	if query == "" && startDate == "" && endDate == "" && exportPath == "" {
		return
	}

	params := url.Values{}
	params.Set("q", query)
	if wholeWord {
		params.Set("whole_word", "true")
	}
	if startDate != "" {
		params.Set("start", startDate)
	}
	if endDate != "" {
		params.Set("end", endDate)
	}

	// Поиск и вывод результатов
	search := runSearch(serverAddr, archiveID, params)
	fmt.Printf("Найдено сообщений: %d", search.FilteredCount)
	if search.Truncated {
		fmt.Printf(" (показаны первые %d)", len(search.Matches))
	}
	fmt.Println()

	console := exporter.NewConsoleExporter()
	if err := console.Export(search.Matches); err != nil {
		log.Fatalf("Не удалось вывести результаты: %v", err)
	}

	// Копирование содержимого выбранного результата в буфер обмена
	if copyIndex > 0 {
		if copyIndex > len(search.Matches) {
			log.Fatalf("Результата с номером %d нет", copyIndex)
		}
		clip := exporter.NewClipboardExporter()
		if clip.CopyText(search.Matches[copyIndex-1].Content) {
			fmt.Println("Содержимое скопировано в буфер обмена.")
		} else {
			// Неудача копирования — мягкая: показываем и продолжаем.
			fmt.Println("Не удалось скопировать в буфер обмена.")
		}
	}

	// Выгрузка отфильтрованной коллекции в XLSX
	if exportPath != "" {
		downloadExport(serverAddr, archiveID, params, exportPath)
		fmt.Printf("Экспорт сохранен в %s\n", exportPath)
	}
}

// startLoad отправляет запрос на загрузку архива и возвращает
// идентификатор сессии.
func startLoad(serverAddr, endpoint string, payload map[string]string) string {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			log.Fatalf("Не удалось сериализовать запрос: %v", err)
		}
	}

	resp, err := http.Post(serverAddr+endpoint, "application/json", &body)
	if err != nil {
		log.Fatalf("Не удалось отправить запрос: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(resp.Body)
		log.Fatalf("Сервер вернул статус %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var loadResp map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&loadResp); err != nil {
		log.Fatalf("Не удалось декодировать ответ: %v", err)
	}
	archiveID := loadResp["archive_id"]
	if archiveID == "" {
		log.Fatal("Идентификатор архива не найден в ответе")
	}
	return archiveID
}

// pollStatus опрашивает статус загрузки, пока она не завершится.
func pollStatus(serverAddr, archiveID string) *archiveStatusResponse {
	for {
		resp, err := http.Get(fmt.Sprintf("%s/api/v1/archives/%s", serverAddr, archiveID))
		if err != nil {
			log.Fatalf("Не удалось опросить статус: %v", err)
		}

		var status archiveStatusResponse
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("Не удалось декодировать ответ статуса: %v", err)
		}

		switch status.Status {
		case "completed":
			return &status
		case "failed":
			fmt.Printf("Загрузка не удалась: %s\n", status.ErrorMessage)
			os.Exit(1)
		case "pending", "processing":
			if status.Progress.Total > 0 {
				fmt.Printf("Обработано файлов: %d/%d\n", status.Progress.Processed, status.Progress.Total)
			}
			time.Sleep(200 * time.Millisecond)
		default:
			log.Fatalf("Неизвестный статус загрузки: %s", status.Status)
		}
	}
}

// runSearch выполняет поисковый запрос.
func runSearch(serverAddr, archiveID string, params url.Values) *searchResponse {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/archives/%s/search?%s", serverAddr, archiveID, params.Encode()))
	if err != nil {
		log.Fatalf("Не удалось выполнить поиск: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Сервер вернул статус: %d", resp.StatusCode)
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		log.Fatalf("Не удалось декодировать ответ поиска: %v", err)
	}
	return &search
}

// downloadExport скачивает XLSX-экспорт отфильтрованной коллекции.
func downloadExport(serverAddr, archiveID string, params url.Values, path string) {
	resp, err := http.Post(fmt.Sprintf("%s/api/v1/archives/%s/export?%s", serverAddr, archiveID, params.Encode()), "application/json", nil)
	if err != nil {
		log.Fatalf("Не удалось запросить экспорт: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Сервер вернул статус: %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		log.Fatalf("Не удалось создать файл экспорта: %v", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		log.Fatalf("Не удалось сохранить экспорт: %v", err)
	}
}
