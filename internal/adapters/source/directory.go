package source

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

// ListFolder обходит выбранную папку и возвращает плоский список её
// файлов с путями относительно корня папки — в той же форме, в какой
// их отдает механизм выбора папки: первый сегмент каждого пути — имя
// самой выбранной папки. Директории в список не попадают.
func ListFolder(root string) ([]domain.ArchiveFile, error) {
	var files []domain.ArchiveFile
	base := filepath.Base(filepath.Clean(root))

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		files = append(files, domain.ArchiveFile{
			RelativePath: filepath.ToSlash(filepath.Join(base, rel)),
			AbsolutePath: p,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", root, err)
	}

	return files, nil
}
