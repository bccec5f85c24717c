package shared

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"managerhr/internal/domain/listing"
)

// UpdateView folds list query parameters into v:
//
//	q, <select>, <minimum>, <since>, <toggle>, sort, order, pageSize, page, reset=1
//
// Filter names come from spec and toggles. An absent parameter leaves its
// filter alone; a present but empty one clears it. When a filter or the
// page size changed in this request, page is ignored so the list starts
// over at page 1.
func UpdateView[T any](v *listing.View, q url.Values, spec listing.Spec[T], toggles []string, defaults listing.View, loc *time.Location) *Validator {
	issues := NewValidator()
	if q.Get("reset") == "1" {
		*v = defaults.Clone()
	}

	changed := false
	if q.Has("q") {
		changed = v.SetQuery(q.Get("q")) || changed
	}
	for name := range spec.Selects {
		if q.Has(name) {
			changed = v.SetSelect(name, strings.TrimSpace(q.Get(name))) || changed
		}
	}
	for name := range spec.Minimums {
		if !q.Has(name) {
			continue
		}
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			changed = v.SetMinimum(name, nil) || changed
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			issues.Add(name, "phải là số")
			continue
		}
		changed = v.SetMinimum(name, &value) || changed
	}
	for name := range spec.Since {
		if !q.Has(name) {
			continue
		}
		value, err := ParseDate(q.Get(name), loc)
		if err != nil {
			issues.Add(name, "không phải ngày hợp lệ (YYYY-MM-DD)")
			continue
		}
		changed = v.SetSince(name, value) || changed
	}
	for _, name := range toggles {
		if q.Has(name) {
			on, _ := strconv.ParseBool(q.Get(name))
			changed = v.SetToggle(name, on) || changed
		}
	}

	if q.Has("sort") || q.Has("order") {
		key := v.SortBy
		if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
			if spec.HasSort(raw) {
				key = raw
			} else {
				issues.Add("sort", "không hỗ trợ sắp xếp theo "+raw)
			}
		}
		order, ok := listing.ParseOrder(q.Get("order"))
		if q.Has("order") && !ok {
			issues.Add("order", "phải là asc hoặc desc")
		}
		v.SetSort(key, order)
	}

	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > 100 {
			issues.Add("pageSize", "phải nằm trong khoảng 1 đến 100")
		} else {
			changed = v.SetPageSize(size) || changed
		}
	}
	if raw := q.Get("page"); raw != "" && !changed {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			issues.Add("page", "phải là số nguyên dương")
		} else {
			v.SetPage(page)
		}
	}
	return issues
}
