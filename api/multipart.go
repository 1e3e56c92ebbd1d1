package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// Multipart is a multipart/form-data body built in memory.
type Multipart struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field       string
	filename    string
	contentType string
	r           io.Reader
}

// NewMultipart returns an empty form.
func NewMultipart() *Multipart { return &Multipart{} }

// AddField adds a plain text field.
func (m *Multipart) AddField(name, value string) *Multipart {
	m.fields = append(m.fields, formField{name: name, value: value})
	return m
}

// AddJSON adds v encoded as a JSON text field.
func (m *Multipart) AddJSON(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	m.AddField(name, string(raw))
	return nil
}

// AddFile adds a file part. contentType may be empty.
func (m *Multipart) AddFile(field, filename, contentType string, r io.Reader) *Multipart {
	m.files = append(m.files, formFile{field: field, filename: filename, contentType: contentType, r: r})
	return m
}

// Encode renders the body and returns it with its Content-Type header.
func (m *Multipart) Encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range m.fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	for _, f := range m.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		ct := f.contentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.field, err)
		}
		if _, err := io.Copy(part, f.r); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
