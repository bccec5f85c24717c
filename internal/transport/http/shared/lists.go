package shared

import (
	"net/http"
	"time"

	"golang.org/x/text/language"

	"managerhr/internal/domain/listing"
	"managerhr/internal/requestctx"
)

// Lists remembers each session's list views between requests.
type Lists struct {
	Cache  *listing.StateCache
	Locale language.Tag
	Loc    *time.Location
}

// List is a page of a list together with the view that produced it.
type List[T any] struct {
	listing.Page[T]
	View listing.View `json:"view"`
}

// LoadView reads the session's current view of list name and folds in the
// request's query. On bad parameters the 400 has been written and ok is false.
func LoadView[T any](l Lists, w http.ResponseWriter, r *http.Request, name string, spec listing.Spec[T], defaults listing.View, toggles ...string) (listing.View, bool) {
	sid := requestctx.GetSessionID(r.Context())
	view := l.Cache.Load(sid, name, defaults)
	if issues := UpdateView(&view, r.URL.Query(), spec, toggles, defaults, l.Loc); issues.Reject(w, RequestID(r)) {
		return view, false
	}
	l.Cache.Store(sid, name, view)
	return view, true
}

// Build runs the pipeline and remembers a clamped page index.
func Build[T any](l Lists, r *http.Request, name string, items []T, spec listing.Spec[T], view listing.View) List[T] {
	page := spec.Apply(items, view, l.Locale)
	if page.Page != view.Page {
		view.SetPage(page.Page)
		l.Cache.Store(requestctx.GetSessionID(r.Context()), name, view)
	}
	return List[T]{Page: page, View: view}
}

func FailedList[T any](view listing.View) List[T] {
	return List[T]{Page: listing.Failed[T](view), View: view}
}

// Save remembers a view changed after LoadView, e.g. by a page selector
// that is not a list filter.
func (l Lists) Save(r *http.Request, name string, view listing.View) {
	l.Cache.Store(requestctx.GetSessionID(r.Context()), name, view)
}
