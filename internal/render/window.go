// Package render вычисляет оконную отрисовку длинного упорядоченного
// списка: какой непрерывный диапазон индексов нужно материализовать,
// чтобы покрыть видимую область плюс запас в обе стороны. Пакет не
// знает ничего о сообщениях — только о количестве элементов и их
// высотах.
package render

import "sync"

// Параметры отрисовки по умолчанию.
const (
	// DefaultEstimatedItemHeight — высота элемента в пикселях, пока
	// элемент не был реально измерен.
	DefaultEstimatedItemHeight = 96
	// DefaultOverscan — сколько дополнительных элементов
	// материализуется за каждой границей видимой области, чтобы
	// быстрый скролл не мерцал.
	DefaultOverscan = 5
)

// Item — один материализованный элемент окна: его индекс в коллекции,
// смещение от начала общей протяжённости и текущая высота.
type Item struct {
	Index  int `json:"index"`
	Offset int `json:"offset"`
	Height int `json:"height"`
}

// Plan — результат планирования окна: закрытый диапазон индексов
// [Start, End], материализованные элементы и общая прокручиваемая
// протяжённость. Для пустой коллекции Start и End равны -1.
type Plan struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Items       []Item `json:"items"`
	TotalExtent int    `json:"total_extent"`
}

// Planner хранит высоты элементов и отвечает на запросы окна.
// Планировщик принадлежит одному представлению коллекции: смена
// коллекции или фильтра означает Reset. Один планировщик разделяется
// обработчиками запросов, поэтому все методы безопасны для
// одновременного вызова.
//
// Инвариант: план всегда включает каждый индекс, чья протяжённость
// пересекает видимую область, — видимых дыр не бывает. Сверх этого
// включаются только элементы запаса.
type Planner struct {
	mu sync.Mutex

	count    int
	estimate int
	overscan int

	// measured хранит реально измеренные высоты; для остальных
	// элементов действует оценка.
	measured map[int]int

	// offsets[i] — смещение элемента i; offsets[count] — общая
	// протяжённость. Пересчитывается лениво после изменений.
	offsets []int
	dirty   bool
}

// NewPlanner создает планировщик для count элементов. Неположительные
// параметры заменяются значениями по умолчанию.
func NewPlanner(count, estimatedHeight, overscan int) *Planner {
	if estimatedHeight <= 0 {
		estimatedHeight = DefaultEstimatedItemHeight
	}
	if overscan < 0 {
		overscan = DefaultOverscan
	}
	p := &Planner{
		estimate: estimatedHeight,
		overscan: overscan,
	}
	p.Reset(count)
	return p
}

// Reset переключает планировщик на новую коллекцию из count элементов,
// сбрасывая все измеренные высоты. Вызывается при смене архива или
// результата фильтра.
func (p *Planner) Reset(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if count < 0 {
		count = 0
	}
	p.count = count
	p.measured = make(map[int]int)
	p.dirty = true
}

// Count возвращает число элементов текущей коллекции.
func (p *Planner) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// SetMeasuredHeight записывает реально измеренную высоту элемента и
// сообщает, изменила ли она что-нибудь. Индексы вне коллекции и
// неположительные высоты игнорируются.
func (p *Planner) SetMeasuredHeight(index, height int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= p.count || height <= 0 {
		return false
	}
	if prev, ok := p.measured[index]; ok && prev == height {
		return false
	}
	p.measured[index] = height
	p.dirty = true
	return true
}

// HeightOf возвращает текущую высоту элемента: измеренную, если она
// есть, иначе оценку.
func (p *Planner) HeightOf(index int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.heightOf(index)
}

// OffsetOf возвращает смещение элемента от начала общей протяжённости.
func (p *Planner) OffsetOf(index int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebuild()
	if index < 0 {
		return 0
	}
	if index >= p.count {
		return p.offsets[p.count]
	}
	return p.offsets[index]
}

// TotalExtent возвращает общую прокручиваемую протяжённость — сумму
// высот всех элементов.
func (p *Planner) TotalExtent() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebuild()
	return p.offsets[p.count]
}

// Plan возвращает минимальный непрерывный диапазон индексов,
// покрывающий [scrollTop, scrollTop+viewportHeight], расширенный на
// запас в обе стороны, вместе со смещением и высотой каждого элемента.
func (p *Planner) Plan(scrollTop, viewportHeight int) Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebuild()

	if p.count == 0 {
		return Plan{Start: -1, End: -1, TotalExtent: 0}
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	if viewportHeight < 0 {
		viewportHeight = 0
	}

	// Первый элемент, чей низ ниже верха видимой области.
	start := p.indexAt(scrollTop)
	// Последний элемент, чей верх выше низа видимой области.
	end := p.indexAt(scrollTop + viewportHeight)

	start -= p.overscan
	if start < 0 {
		start = 0
	}
	end += p.overscan
	if end >= p.count {
		end = p.count - 1
	}

	items := make([]Item, 0, end-start+1)
	for i := start; i <= end; i++ {
		items = append(items, Item{
			Index:  i,
			Offset: p.offsets[i],
			Height: p.offsets[i+1] - p.offsets[i],
		})
	}

	return Plan{
		Start:       start,
		End:         end,
		Items:       items,
		TotalExtent: p.offsets[p.count],
	}
}

// ScrollToIndex возвращает позицию прокрутки, при которой элемент
// оказывается по центру видимой области. Используется для перехода
// к сообщению из результатов поиска.
func (p *Planner) ScrollToIndex(index, viewportHeight int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebuild()

	if p.count == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= p.count {
		index = p.count - 1
	}

	itemTop := p.offsets[index]
	itemHeight := p.offsets[index+1] - itemTop
	target := itemTop - (viewportHeight-itemHeight)/2

	maxScroll := p.offsets[p.count] - viewportHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if target > maxScroll {
		target = maxScroll
	}
	if target < 0 {
		target = 0
	}
	return target
}

// heightOf возвращает высоту элемента. Вызывается под p.mu.
func (p *Planner) heightOf(index int) int {
	if h, ok := p.measured[index]; ok {
		return h
	}
	return p.estimate
}

// rebuild пересчитывает префиксные смещения, если были изменения.
// Вызывается под p.mu.
func (p *Planner) rebuild() {
	if !p.dirty && p.offsets != nil {
		return
	}
	p.offsets = make([]int, p.count+1)
	for i := 0; i < p.count; i++ {
		p.offsets[i+1] = p.offsets[i] + p.heightOf(i)
	}
	p.dirty = false
}

// indexAt возвращает индекс элемента, которому принадлежит вертикальная
// позиция pos: последний элемент с offsets[i] <= pos. Двоичный поиск по
// префиксным смещениям. Вызывается под p.mu.
func (p *Planner) indexAt(pos int) int {
	lo, hi := 0, p.count-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.offsets[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
