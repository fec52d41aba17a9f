package domain

// MediaCategory — категория медиа-папки внутри архива беседы.
type MediaCategory string

// Пять категорий медиа, которые распознаются в папке архива.
const (
	MediaPhotos MediaCategory = "photos"
	MediaVideos MediaCategory = "videos"
	MediaAudio  MediaCategory = "audio"
	MediaGifs   MediaCategory = "gifs"
	MediaFiles  MediaCategory = "files"
)

// MediaCategories перечисляет все распознаваемые категории медиа-папок.
var MediaCategories = []MediaCategory{MediaPhotos, MediaVideos, MediaAudio, MediaGifs, MediaFiles}

// MessageFile представляет корневую структуру одного файла message_<n>.json.
type MessageFile struct {
	Participants []Participant `json:"participants,omitempty"`
	Messages     []RawMessage  `json:"messages"`
	Title        string        `json:"title,omitempty"`
	ThreadPath   string        `json:"thread_path,omitempty"`
}

// Participant представляет участника беседы из файла экспорта.
type Participant struct {
	Name string `json:"name"`
}

// Attachment представляет ссылку на медиа-файл внутри архива.
// URI содержит служебные сегменты архива, которые убираются перед показом.
type Attachment struct {
	URI               string `json:"uri"`
	CreationTimestamp int64  `json:"creation_timestamp,omitempty"`
}

// Reaction представляет реакцию на сообщение.
type Reaction struct {
	Reaction string `json:"reaction"` // эмодзи, возможно в повреждённой кодировке
	Actor    string `json:"actor"`
}

// Share представляет вложенную ссылку, которой поделились в сообщении.
type Share struct {
	Link      string `json:"link,omitempty"`
	ShareText string `json:"share_text,omitempty"`
}

// RawMessage представляет одно сообщение в том виде, в котором оно
// лежит в файле экспорта. Поля с текстом могут быть в повреждённой
// кодировке (UTF-8, прочитанный как Latin-1) и чинятся при обогащении.
type RawMessage struct {
	SenderName   string       `json:"sender_name"`
	TimestampMS  int64        `json:"timestamp_ms"`
	Content      string       `json:"content,omitempty"`
	Photos       []Attachment `json:"photos,omitempty"`
	Videos       []Attachment `json:"videos,omitempty"`
	AudioFiles   []Attachment `json:"audio_files,omitempty"`
	Files        []Attachment `json:"files,omitempty"`
	Gifs         []Attachment `json:"gifs,omitempty"`
	Reactions    []Reaction   `json:"reactions,omitempty"`
	Share        *Share       `json:"share,omitempty"`
	CallDuration int64        `json:"call_duration,omitempty"`
	IsUnsent     bool         `json:"is_unsent,omitempty"`
}

// HasTimestamp сообщает, есть ли у сообщения отметка времени.
// Сообщения без неё отбрасываются при агрегации: их невозможно
// упорядочить в общей коллекции.
func (m *RawMessage) HasTimestamp() bool {
	return m.TimestampMS > 0
}

// EnrichedMessage представляет сообщение после обогащения: сырые данные
// плюс синтетический идентификатор, починенные текстовые поля и строки
// даты и времени для показа. После агрегации не изменяется.
type EnrichedMessage struct {
	RawMessage

	// ID уникален в пределах одной агрегированной коллекции и строится
	// как "{идентификатор файла}_{индекс внутри файла}".
	ID string `json:"id"`

	// DisplayDate и DisplayTime — строки даты и времени в локальной
	// временной зоне зрителя.
	DisplayDate string `json:"display_date"`
	DisplayTime string `json:"display_time"`
}

// ArchiveFile представляет один файл из выбранной пользователем папки.
type ArchiveFile struct {
	// RelativePath — путь относительно корня выбранной папки,
	// с прямыми слешами.
	RelativePath string
	// AbsolutePath — путь к файлу на диске.
	AbsolutePath string
}

// FolderStructure отображает категорию медиа на имена файлов и их
// абсолютные пути. Содержит только ссылки, никогда содержимое файлов.
type FolderStructure map[MediaCategory]map[string]string

// ValidatedFolder — результат успешной проверки выбранной папки.
type ValidatedFolder struct {
	// ChatFolder — имя папки, однозначно определяющее беседу.
	ChatFolder string
	// MessageFiles — файлы message_<n>.json, отсортированные по
	// числовому суффиксу по возрастанию.
	MessageFiles []ArchiveFile
	// AllFiles — исходный набор файлов, как его передал выбор папки.
	AllFiles []ArchiveFile
}
