package services

import (
	"errors"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// Ошибки проверки папки. Показываются пользователю как есть, до начала
// какой-либо обработки.
var (
	ErrNoMessageFiles = errors.New("no message files found in the selected folder")
	ErrNoMediaFolders = errors.New("no media folders found in the selected folder")
	ErrUnnamedFolder  = errors.New("chat folder name could not be determined")
)

// messageFileRegexp распознает файлы сообщений вида message_<число>.json.
var messageFileRegexp = regexp.MustCompile(`^message_(\d+)\.json$`)

// FolderValidationService реализует интерфейс ValidationService.
type FolderValidationService struct{}

// NewFolderValidationService создает новый экземпляр FolderValidationService.
func NewFolderValidationService() *FolderValidationService {
	return &FolderValidationService{}
}

var _ ports.ValidationService = (*FolderValidationService)(nil)

// ValidateFolder проверяет плоский набор файлов выбранной папки.
// Имя папки беседы — имя родительской директории первого (до сортировки)
// файла сообщений. Файлы сообщений возвращаются отсортированными по
// числовому суффиксу по возрастанию.
func (s *FolderValidationService) ValidateFolder(files []domain.ArchiveFile) (*domain.ValidatedFolder, error) {
	var messageFiles []domain.ArchiveFile
	for _, f := range files {
		if messageFileRegexp.MatchString(path.Base(f.RelativePath)) {
			messageFiles = append(messageFiles, f)
		}
	}
	if len(messageFiles) == 0 {
		return nil, ErrNoMessageFiles
	}

	if !hasMediaFolder(files) {
		return nil, ErrNoMediaFolders
	}

	// Имя папки определяется до сортировки, по первому совпавшему файлу.
	chatFolder := path.Base(path.Dir(messageFiles[0].RelativePath))
	if chatFolder == "" || chatFolder == "." || chatFolder == "/" {
		return nil, ErrUnnamedFolder
	}

	sorted := make([]domain.ArchiveFile, len(messageFiles))
	copy(sorted, messageFiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return messageFileNumber(sorted[i]) < messageFileNumber(sorted[j])
	})

	return &domain.ValidatedFolder{
		ChatFolder:   chatFolder,
		MessageFiles: sorted,
		AllFiles:     files,
	}, nil
}

// BuildFolderStructure строит карту медиа-папок: категория → имя файла →
// абсолютный путь. Файлы вне распознаваемых категорий игнорируются.
// Карта держит только пути; содержимое файлов читается лениво, когда
// вложение действительно показывается.
func (s *FolderValidationService) BuildFolderStructure(files []domain.ArchiveFile) domain.FolderStructure {
	structure := make(domain.FolderStructure, len(domain.MediaCategories))
	for _, category := range domain.MediaCategories {
		structure[category] = make(map[string]string)
	}

	for _, f := range files {
		parent := path.Base(path.Dir(f.RelativePath))
		for _, category := range domain.MediaCategories {
			if parent == string(category) {
				structure[category][path.Base(f.RelativePath)] = f.AbsolutePath
				break
			}
		}
	}

	return structure
}

// CleanAttachmentPath убирает служебные сегменты архива из пути вложения.
// Первые три сегмента ("your_facebook_activity/messages/inbox") — внутренняя
// обвязка экспорта; показывается всё, что после них.
func CleanAttachmentPath(uri string) string {
	segments := strings.Split(uri, "/")
	if len(segments) <= 3 {
		return uri
	}
	return path.Join(segments[3:]...)
}

// hasMediaFolder сообщает, есть ли хотя бы один файл, чья родительская
// директория названа одной из категорий медиа.
func hasMediaFolder(files []domain.ArchiveFile) bool {
	for _, f := range files {
		parent := path.Base(path.Dir(f.RelativePath))
		for _, category := range domain.MediaCategories {
			if parent == string(category) {
				return true
			}
		}
	}
	return false
}

// messageFileNumber извлекает числовой суффикс из имени файла сообщений.
func messageFileNumber(f domain.ArchiveFile) int {
	matches := messageFileRegexp.FindStringSubmatch(path.Base(f.RelativePath))
	if len(matches) < 2 {
		return 0
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return n
}
