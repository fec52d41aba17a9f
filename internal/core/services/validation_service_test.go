package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

func folderFiles(paths ...string) []domain.ArchiveFile {
	files := make([]domain.ArchiveFile, len(paths))
	for i, p := range paths {
		files[i] = domain.ArchiveFile{RelativePath: p, AbsolutePath: "/abs/" + p}
	}
	return files
}

func TestFolderValidationService_ValidateFolder(t *testing.T) {
	svc := NewFolderValidationService()

	t.Run("Корректная папка проходит проверку", func(t *testing.T) {
		folder, err := svc.ValidateFolder(folderFiles(
			"my_chat_abc123/message_1.json",
			"my_chat_abc123/photos/img.jpg",
		))
		require.NoError(t, err)
		assert.Equal(t, "my_chat_abc123", folder.ChatFolder)
		require.Len(t, folder.MessageFiles, 1)
		assert.Len(t, folder.AllFiles, 2)
	})

	t.Run("Файлы сообщений сортируются по числовому суффиксу", func(t *testing.T) {
		folder, err := svc.ValidateFolder(folderFiles(
			"chat/message_10.json",
			"chat/message_2.json",
			"chat/message_1.json",
			"chat/photos/img.jpg",
		))
		require.NoError(t, err)
		require.Len(t, folder.MessageFiles, 3)
		assert.Equal(t, "chat/message_1.json", folder.MessageFiles[0].RelativePath)
		assert.Equal(t, "chat/message_2.json", folder.MessageFiles[1].RelativePath)
		assert.Equal(t, "chat/message_10.json", folder.MessageFiles[2].RelativePath)
	})

	t.Run("Папка без файлов сообщений отклоняется", func(t *testing.T) {
		_, err := svc.ValidateFolder(folderFiles(
			"chat/photos/img.jpg",
			"chat/readme.txt",
		))
		assert.ErrorIs(t, err, ErrNoMessageFiles)
	})

	t.Run("Отсутствие файлов сообщений важнее отсутствия медиа", func(t *testing.T) {
		_, err := svc.ValidateFolder(folderFiles("chat/readme.txt"))
		assert.ErrorIs(t, err, ErrNoMessageFiles)
	})

	t.Run("Папка без медиа-папок отклоняется", func(t *testing.T) {
		_, err := svc.ValidateFolder(folderFiles("chat/message_1.json"))
		assert.ErrorIs(t, err, ErrNoMediaFolders)
	})

	t.Run("Похожие на сообщения файлы не считаются", func(t *testing.T) {
		_, err := svc.ValidateFolder(folderFiles(
			"chat/message_abc.json",
			"chat/message_1.txt",
			"chat/messages_1.json",
			"chat/photos/img.jpg",
		))
		assert.ErrorIs(t, err, ErrNoMessageFiles)
	})

	t.Run("Имя беседы берется из родителя первого файла сообщений", func(t *testing.T) {
		folder, err := svc.ValidateFolder(folderFiles(
			"inbox/first_chat/message_2.json",
			"inbox/first_chat/message_1.json",
			"inbox/first_chat/photos/img.jpg",
		))
		require.NoError(t, err)
		assert.Equal(t, "first_chat", folder.ChatFolder)
	})

	t.Run("Пустой список файлов отклоняется", func(t *testing.T) {
		_, err := svc.ValidateFolder(nil)
		assert.ErrorIs(t, err, ErrNoMessageFiles)
	})
}

func TestFolderValidationService_BuildFolderStructure(t *testing.T) {
	svc := NewFolderValidationService()

	t.Run("Медиа раскладываются по категориям", func(t *testing.T) {
		structure := svc.BuildFolderStructure(folderFiles(
			"chat/photos/a.jpg",
			"chat/photos/b.jpg",
			"chat/videos/clip.mp4",
			"chat/audio/voice.mp3",
			"chat/gifs/fun.gif",
			"chat/files/doc.pdf",
		))

		assert.Len(t, structure[domain.MediaPhotos], 2)
		assert.Equal(t, "/abs/chat/photos/a.jpg", structure[domain.MediaPhotos]["a.jpg"])
		assert.Len(t, structure[domain.MediaVideos], 1)
		assert.Len(t, structure[domain.MediaAudio], 1)
		assert.Len(t, structure[domain.MediaGifs], 1)
		assert.Len(t, structure[domain.MediaFiles], 1)
	})

	t.Run("Файлы вне категорий игнорируются", func(t *testing.T) {
		structure := svc.BuildFolderStructure(folderFiles(
			"chat/message_1.json",
			"chat/stickers/s.png",
		))

		for _, category := range domain.MediaCategories {
			assert.Empty(t, structure[category])
		}
	})

	t.Run("Все категории присутствуют даже без файлов", func(t *testing.T) {
		structure := svc.BuildFolderStructure(nil)
		for _, category := range domain.MediaCategories {
			assert.NotNil(t, structure[category])
		}
	})
}

func TestCleanAttachmentPath(t *testing.T) {
	t.Run("Служебный префикс экспорта отбрасывается", func(t *testing.T) {
		got := CleanAttachmentPath("your_facebook_activity/messages/inbox/my_chat/photos/img.jpg")
		assert.Equal(t, "my_chat/photos/img.jpg", got)
	})

	t.Run("Короткий путь остается без изменений", func(t *testing.T) {
		got := CleanAttachmentPath("photos/img.jpg")
		assert.Equal(t, "photos/img.jpg", got)
	})

	t.Run("Путь ровно из трех сегментов остается без изменений", func(t *testing.T) {
		got := CleanAttachmentPath("a/b/c")
		assert.Equal(t, "a/b/c", got)
	})
}
