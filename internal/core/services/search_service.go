package services

import (
	"strings"
	"time"

	"github.com/clipperhouse/uax29/v2/words"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

// DefaultSearchResultLimit ограничивает список мгновенных результатов,
// чтобы стоимость отрисовки не зависела от размера коллекции.
const DefaultSearchResultLimit = 50

// Filter описывает один запрос к поисковому движку: текст, режим
// "целое слово" и необязательный диапазон дат (включительно, по
// локальным суткам). Пересчитывается на каждое изменение, не хранится.
type Filter struct {
	Query     string
	WholeWord bool
	StartDate *time.Time
	EndDate   *time.Time
}

// IsEmpty сообщает, что фильтр не ограничивает коллекцию.
func (f Filter) IsEmpty() bool {
	return f.Query == "" && f.StartDate == nil && f.EndDate == nil
}

// SearchResult — результат одного запроса: ограниченный список для
// мгновенного показа и полное отфильтрованное представление для
// оконной отрисовки. Filtered хранит индексы в исходной коллекции,
// поэтому порядок всегда совпадает с ней.
type SearchResult struct {
	// Matches — не более лимита первых совпадений.
	Matches []domain.EnrichedMessage
	// Filtered — индексы всех сообщений, прошедших фильтр.
	Filtered []int
	// Truncated сообщает, что Matches обрезаны по лимиту.
	Truncated bool
}

// SearchOption — функциональная опция для настройки SearchService.
type SearchOption func(*SearchService)

// WithResultLimit устанавливает лимит мгновенных результатов.
func WithResultLimit(n int) SearchOption {
	return func(s *SearchService) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithSearchLocation устанавливает временную зону для границ суток
// в фильтре по датам.
func WithSearchLocation(loc *time.Location) SearchOption {
	return func(s *SearchService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// SearchService оценивает фильтр линейным проходом по агрегированной
// коллекции. Пересчет синхронный и запускается на каждое нажатие
// клавиши, поэтому проход обязан оставаться дешёвым. Сервис только
// читает коллекцию и не хранит состояние между запросами.
type SearchService struct {
	limit    int
	location *time.Location
}

// NewSearchService создает новый экземпляр SearchService.
func NewSearchService(opts ...SearchOption) *SearchService {
	s := &SearchService{
		limit:    DefaultSearchResultLimit,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search применяет фильтр ко всей коллекции. Перечисление совпадений
// для Matches останавливается на лимите, но Filtered собирается целиком:
// его потребляет оконная отрисовка.
func (s *SearchService) Search(messages []domain.EnrichedMessage, filter Filter) SearchResult {
	result := SearchResult{}
	if filter.IsEmpty() {
		result.Filtered = make([]int, len(messages))
		for i := range messages {
			result.Filtered[i] = i
		}
		return result
	}

	query := strings.ToLower(filter.Query)
	startMS, endMS := s.dateBounds(filter)

	for i := range messages {
		msg := &messages[i]
		if startMS != 0 && msg.TimestampMS < startMS {
			continue
		}
		if endMS != 0 && msg.TimestampMS > endMS {
			continue
		}
		if query != "" && !s.matchesText(msg, query, filter.WholeWord) {
			continue
		}

		result.Filtered = append(result.Filtered, i)
		if len(result.Matches) < s.limit {
			result.Matches = append(result.Matches, *msg)
		} else {
			result.Truncated = true
		}
	}

	return result
}

// matchesText проверяет сначала содержимое, затем имя отправителя,
// с коротким замыканием на первом совпадении: совпадения по содержимому
// встречаются чаще и быстрее опровергаются на типичных данных.
func (s *SearchService) matchesText(msg *domain.EnrichedMessage, query string, wholeWord bool) bool {
	if wholeWord {
		return containsWholeWord(msg.Content, query) || containsWholeWord(msg.SenderName, query)
	}
	return strings.Contains(strings.ToLower(msg.Content), query) ||
		strings.Contains(strings.ToLower(msg.SenderName), query)
}

// containsWholeWord проверяет, встречается ли запрос как отдельное слово.
// Границы слов определяются сегментацией Unicode (UAX #29), а не ASCII
// \b: так запрос вида "мама" или "chào" ведет себя одинаково для любых
// письменностей. Запрос сравнивается с токенами буквально, поэтому
// метасимволы регулярных выражений в нём ничего не значат. Запрос,
// который сам не является одним словом (содержит пробелы), считается
// фразой и проверяется как подстрока.
func containsWholeWord(text, query string) bool {
	if text == "" || query == "" {
		return false
	}
	if strings.ContainsAny(query, " \t\n") {
		return strings.Contains(strings.ToLower(text), query)
	}

	tokens := words.FromString(text)
	for tokens.Next() {
		if strings.ToLower(tokens.Value()) == query {
			return true
		}
	}
	return false
}

// dateBounds переводит границы фильтра в миллисекунды эпохи:
// [начало суток start, конец суток end] в локальной зоне. Нулевое
// значение означает, что сторона не ограничена.
func (s *SearchService) dateBounds(filter Filter) (startMS, endMS int64) {
	if filter.StartDate != nil {
		d := filter.StartDate.In(s.location)
		startMS = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.location).UnixMilli()
	}
	if filter.EndDate != nil {
		d := filter.EndDate.In(s.location)
		// Конец суток: 23:59:59.999 включительно.
		endMS = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999_000_000, s.location).UnixMilli()
	}
	return startMS, endMS
}
