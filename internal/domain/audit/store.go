package audit

import (
	"context"
	"net/http"
	"net/url"

	"managerhr/internal/platform/upstream"
)

// Backend is the part of the upstream client the store uses.
type Backend interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	Download(ctx context.Context, method, path string, in any) (*upstream.Binary, error)
}

type Store struct {
	api Backend
}

func NewStore(api Backend) *Store {
	return &Store{api: api}
}

func (s *Store) List(ctx context.Context) ([]Log, error) {
	var out []Log
	if err := s.api.GetJSON(ctx, "/activity_logs", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Log{}
	}
	return out, nil
}

// Download exports the logs of a validated range as a spreadsheet.
func (s *Store) Download(ctx context.Context, r DownloadRange) (*upstream.Binary, error) {
	bin, err := s.api.Download(ctx, http.MethodPost, "/activity_logs/download", map[string]any{"data": r})
	if err != nil {
		return nil, err
	}
	if bin.Filename == "" {
		bin.Filename = "activity_logs_" + r.StartDate + "_" + r.EndDate + ".xlsx"
	}
	return bin, nil
}
