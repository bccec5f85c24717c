package upstream

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// File is one binary part of a multipart payload.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// EncodeMultipart writes the `form`-tagged fields of a struct, then files.
// Supported field kinds: strings, ints, floats, bools, time.Time (as a
// date) and pointers to those. A nil pointer or an omitempty zero is skipped.
func EncodeMultipart(form any, files ...File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if form != nil {
		v := reflect.ValueOf(form)
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				break
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, "", fmt.Errorf("multipart form must be a struct, got %s", v.Kind())
		}
		t := v.Type()
		for i := range t.NumField() {
			field := t.Field(i)
			name, omitEmpty, ok := formTag(field)
			if !ok {
				continue
			}
			value, present, err := formValue(v.Field(i))
			if err != nil {
				return nil, "", fmt.Errorf("field %s: %w", field.Name, err)
			}
			if !present || (omitEmpty && value == "") {
				continue
			}
			if err := w.WriteField(name, value); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func formTag(field reflect.StructField) (string, bool, bool) {
	if !field.IsExported() {
		return "", false, false
	}
	tag := field.Tag.Get("form")
	if tag == "" || tag == "-" {
		return "", false, false
	}
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts == "omitempty", true
}

func formValue(v reflect.Value) (string, bool, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false, nil
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		if t.IsZero() {
			return "", true, nil
		}
		return t.Format(time.DateOnly), true, nil
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true, nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true, nil
	}
	return "", false, fmt.Errorf("unsupported kind %s", v.Kind())
}
