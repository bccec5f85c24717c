package listing

import (
	"maps"
	"strings"
	"time"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

func ParseOrder(raw string) (Order, bool) {
	switch Order(strings.ToLower(strings.TrimSpace(raw))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// View is the UI state of one list: filters, sort and paging. Every filter
// setter and SetPageSize move back to page 1 when they change something;
// SetPage and SetSort leave filters alone.
type View struct {
	Query    string               `json:"query,omitempty"`
	Selects  map[string]string    `json:"selects,omitempty"`
	Minimums map[string]float64   `json:"minimums,omitempty"`
	Since    map[string]time.Time `json:"since,omitempty"`
	Toggles  map[string]bool      `json:"toggles,omitempty"`
	SortBy   string               `json:"sortBy,omitempty"`
	Order    Order                `json:"order"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

func NewView(pageSize int, sortBy string, order Order) View {
	if pageSize < 1 {
		pageSize = 10
	}
	if order == "" {
		order = Asc
	}
	return View{SortBy: sortBy, Order: order, Page: 1, PageSize: pageSize}
}

// Clone copies the filter maps so cached views are never shared.
func (v View) Clone() View {
	v.Selects = maps.Clone(v.Selects)
	v.Minimums = maps.Clone(v.Minimums)
	v.Since = maps.Clone(v.Since)
	v.Toggles = maps.Clone(v.Toggles)
	return v
}

func (v *View) SetQuery(q string) bool {
	q = strings.TrimSpace(q)
	if q == v.Query {
		return false
	}
	v.Query = q
	v.Page = 1
	return true
}

// SetSelect sets an exact-match filter; an empty value clears it.
func (v *View) SetSelect(name, value string) bool {
	current, ok := v.Selects[name]
	if value == "" {
		if !ok {
			return false
		}
		delete(v.Selects, name)
		v.Page = 1
		return true
	}
	if ok && current == value {
		return false
	}
	if v.Selects == nil {
		v.Selects = map[string]string{}
	}
	v.Selects[name] = value
	v.Page = 1
	return true
}

// SetMinimum sets a numeric lower bound; nil clears it.
func (v *View) SetMinimum(name string, value *float64) bool {
	current, ok := v.Minimums[name]
	if value == nil {
		if !ok {
			return false
		}
		delete(v.Minimums, name)
		v.Page = 1
		return true
	}
	if ok && current == *value {
		return false
	}
	if v.Minimums == nil {
		v.Minimums = map[string]float64{}
	}
	v.Minimums[name] = *value
	v.Page = 1
	return true
}

// SetSince sets a date lower bound; the zero time clears it.
func (v *View) SetSince(name string, value time.Time) bool {
	current, ok := v.Since[name]
	if value.IsZero() {
		if !ok {
			return false
		}
		delete(v.Since, name)
		v.Page = 1
		return true
	}
	if ok && current.Equal(value) {
		return false
	}
	if v.Since == nil {
		v.Since = map[string]time.Time{}
	}
	v.Since[name] = value
	v.Page = 1
	return true
}

// SetToggle flips a boolean filter such as "pending only".
func (v *View) SetToggle(name string, on bool) bool {
	if v.Toggles[name] == on {
		return false
	}
	if v.Toggles == nil {
		v.Toggles = map[string]bool{}
	}
	if on {
		v.Toggles[name] = true
	} else {
		delete(v.Toggles, name)
	}
	v.Page = 1
	return true
}

func (v *View) SetPageSize(size int) bool {
	if size < 1 || size == v.PageSize {
		return false
	}
	v.PageSize = size
	v.Page = 1
	return true
}

func (v *View) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	v.Page = page
}

func (v *View) SetSort(key string, order Order) {
	v.SortBy = key
	if order != "" {
		v.Order = order
	}
}

func (v View) Toggle(name string) bool {
	return v.Toggles[name]
}
