package upstream

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"
	"time"
)

type registerForm struct {
	FullName   string    `form:"fullName"`
	Salary     float64   `form:"base_salary"`
	StartDate  time.Time `form:"startDate"`
	Department *string   `form:"department"`
	Note       string    `form:"note,omitempty"`
	Internal   string
}

func TestEncodeMultipart(t *testing.T) {
	form := registerForm{
		FullName:  "Nguyễn Văn A",
		Salary:    12500000,
		StartDate: time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
		Internal:  "skip",
	}
	body, contentType, err := EncodeMultipart(&form, File{Field: "avatar", Filename: "a.png", ContentType: "image/png", Data: []byte{0x89, 'P'}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("content type: %v", err)
	}
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	got := map[string]string{}
	var avatar []byte
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			avatar = data
			continue
		}
		got[part.FormName()] = string(data)
	}

	want := map[string]string{"fullName": "Nguyễn Văn A", "base_salary": "12500000", "startDate": "2030-01-02"}
	if len(got) != len(want) {
		t.Fatalf("expected fields %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s = %q, want %q", k, got[k], v)
		}
	}
	if !bytes.Equal(avatar, []byte{0x89, 'P'}) {
		t.Fatalf("unexpected avatar bytes %v", avatar)
	}
}

func TestEncodeMultipartRejectsNonStruct(t *testing.T) {
	if _, _, err := EncodeMultipart(map[string]string{"a": "b"}); err == nil {
		t.Fatal("expected error for non-struct form")
	}
}
