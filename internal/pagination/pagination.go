package pagination

import "math"

const (
	// DefaultPerPage используется, если размер страницы не задан.
	DefaultPerPage = 15
	// MaxPerPage ограничивает размер страницы сверху.
	MaxPerPage = 100
	// MaxPage - наибольший номер страницы, при котором (page-1)*perPage+perPage не переполняет int.
	MaxPage = math.MaxInt / MaxPerPage
)

// Params - нормализованные параметры страницы.
type Params struct {
	Page    int
	PerPage int
	Offset  int
}

// Normalize приводит page/perPage к допустимым значениям и вычисляет смещение.
func Normalize(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage}
}

// Page - страница результата со стабильной формой.
// From/To - индексы элементов (с единицы) на текущей странице.
// Для пустой выборки From = offset+1, To = min(offset+perPage, total), т.е. From > To.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	LastPage    int   `json:"last_page"`
	From        int64 `json:"from"`
	To          int64 `json:"to"`
}

// New собирает страницу. Items никогда не nil, чтобы JSON содержал [].
func New[T any](items []T, total int64, page, perPage int) Page[T] {
	p := Normalize(page, perPage)
	if items == nil {
		items = []T{}
	}
	if total < 0 {
		total = 0
	}

	lastPage := int(total / int64(p.PerPage))
	if total%int64(p.PerPage) != 0 {
		lastPage++
	}

	offset := int64(p.Offset)
	to := offset + int64(p.PerPage)
	if to > total {
		to = total
	}

	return Page[T]{
		Items:       items,
		Total:       total,
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		LastPage:    lastPage,
		From:        offset + 1,
		To:          to,
	}
}

// Slice вырезает страницу из полного упорядоченного набора (используется in-memory хранилищем).
func Slice[T any](all []T, page, perPage int) Page[T] {
	p := Normalize(page, perPage)
	total := int64(len(all))

	start := min(max(p.Offset, 0), len(all))
	end := min(start+p.PerPage, len(all))

	items := make([]T, end-start)
	copy(items, all[start:end])
	return New(items, total, p.Page, p.PerPage)
}
