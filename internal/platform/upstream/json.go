package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Binary is a downloaded file such as a spreadsheet backup.
type Binary struct {
	ContentType string
	Filename    string
	Data        []byte
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// SendJSON issues method with in encoded as JSON; a nil in sends `{}`.
func (c *Client) SendJSON(ctx context.Context, method, path string, in, out any) error {
	body := []byte("{}")
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = encoded
	}
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) SendMultipart(ctx context.Context, method, path string, form any, files []File, out any) error {
	body, contentType, err := EncodeMultipart(form, files...)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body, ContentType: contentType})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Download fetches a binary body. A non-nil in is sent as JSON.
func (c *Client) Download(ctx context.Context, method, path string, in any) (*Binary, error) {
	req := Request{Method: method, Path: path, Accept: "*/*"}
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		req.Body = encoded
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Binary{
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    resp.Filename(),
		Data:        resp.Body,
	}, nil
}
