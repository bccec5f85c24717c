package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"managerhr/internal/domain/access"
	"managerhr/internal/transport/http/middleware"
)

// spaHandler serves the built dashboard. Static assets are sent as files;
// every other GET is a client route, checked against the route table before
// index.html is served.
type spaHandler struct {
	table      *access.Table
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	rel := h.table.Relative(r.URL.Path)
	if rel == "" {
		rel = "/"
	}
	clean := path.Clean("/" + rel)
	if path.Ext(clean) != "" {
		file := filepath.Join(h.staticPath, filepath.FromSlash(clean))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			http.ServeFile(w, r, file)
			return
		}
		http.NotFound(w, r)
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	if decision, found := h.table.DecidePath(sess, clean); found && decision.Outcome != access.Allow {
		http.Redirect(w, r, decision.Location, http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
}
