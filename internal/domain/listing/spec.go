package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey extracts one comparable value. Exactly one extractor is set.
type SortKey[T any] struct {
	String func(T) string
	Number func(T) float64
	Time   func(T) time.Time
}

func ByString[T any](fn func(T) string) SortKey[T]  { return SortKey[T]{String: fn} }
func ByNumber[T any](fn func(T) float64) SortKey[T] { return SortKey[T]{Number: fn} }
func ByTime[T any](fn func(T) time.Time) SortKey[T] { return SortKey[T]{Time: fn} }

// Spec declares how a list of T can be filtered and sorted. Filters combine
// with logical AND; a filter named in a View but absent here is ignored.
type Spec[T any] struct {
	Search   func(T) []string
	Selects  map[string]func(T) string
	Minimums map[string]func(T) float64
	Since    map[string]func(T) time.Time
	Sorts    map[string]SortKey[T]
}

type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	LoadFailed bool `json:"loadFailed,omitempty"`
}

func (s Spec[T]) HasSort(key string) bool {
	_, ok := s.Sorts[key]
	return ok
}

func (s Spec[T]) Filter(items []T, v View) []T {
	query := strings.ToLower(v.Query)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if s.matches(item, v, query) {
			out = append(out, item)
		}
	}
	return out
}

func (s Spec[T]) matches(item T, v View, query string) bool {
	if query != "" && s.Search != nil {
		found := false
		for _, field := range s.Search(item) {
			if strings.Contains(strings.ToLower(field), query) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for name, want := range v.Selects {
		if get, ok := s.Selects[name]; ok && get(item) != want {
			return false
		}
	}
	for name, floor := range v.Minimums {
		if get, ok := s.Minimums[name]; ok && get(item) < floor {
			return false
		}
	}
	for name, since := range v.Since {
		if get, ok := s.Since[name]; ok && get(item).Before(since) {
			return false
		}
	}
	return true
}

// Sort orders items in place. String keys compare with the collation rules
// of locale.
func (s Spec[T]) Sort(items []T, v View, locale language.Tag) {
	key, ok := s.Sorts[v.SortBy]
	if !ok {
		return
	}
	compare := key.comparator(locale)
	if compare == nil {
		return
	}
	desc := v.Order == Desc
	slices.SortStableFunc(items, func(a, b T) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func (k SortKey[T]) comparator(locale language.Tag) func(a, b T) int {
	switch {
	case k.String != nil:
		collator := collate.New(locale, collate.IgnoreCase)
		return func(a, b T) int { return collator.CompareString(k.String(a), k.String(b)) }
	case k.Number != nil:
		return func(a, b T) int { return cmp.Compare(k.Number(a), k.Number(b)) }
	case k.Time != nil:
		return func(a, b T) int { return k.Time(a).Compare(k.Time(b)) }
	}
	return nil
}

// Apply filters, sorts and slices one page. The input slice is not modified.
// A page past the end is clamped to the last page.
func (s Spec[T]) Apply(items []T, v View, locale language.Tag) Page[T] {
	filtered := s.Filter(items, v)
	s.Sort(filtered, v, locale)
	return Paginate(filtered, v.Page, v.PageSize)
}

func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 {
		size = 10
	}
	total := len(items)
	pages := (total + size - 1) / size
	page = max(1, min(page, pages))
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return Page[T]{
		Items:      slices.Clone(items[start:end]),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
}

// Failed is the empty page a list renders when its source could not load.
func Failed[T any](v View) Page[T] {
	return Page[T]{Items: []T{}, Page: 1, PageSize: v.PageSize, LoadFailed: true}
}
