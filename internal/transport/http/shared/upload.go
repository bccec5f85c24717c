package shared

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"managerhr/internal/platform/upstream"
	"managerhr/internal/transport/http/api"
)

const maxUploadMemory = 8 << 20

// ParseMultipart reads a multipart body; JSON bodies are left alone and
// report false without writing.
func ParseMultipart(w http.ResponseWriter, r *http.Request) (bool, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return false, true
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload too large", RequestID(r))
			return true, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_multipart", "invalid multipart payload", RequestID(r))
		return true, false
	}
	return true, true
}

// FormFile returns the uploaded part named field, or nil when absent.
func FormFile(r *http.Request, field string) (*upstream.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &upstream.File{Field: field, Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// Attachment writes a file download.
func Attachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
