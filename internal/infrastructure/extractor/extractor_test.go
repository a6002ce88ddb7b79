package extractor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[key] = raw
	return nil
}

func (m *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := m.objects[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func TestFactoryRoutesPlaintext(t *testing.T) {
	storage := &memoryStorage{objects: map[string][]byte{
		"doc-1_notes.md": []byte("  # Weekly notes\nitems\n"),
	}}
	factory := NewFactory(storage)

	doc := &domain.Document{StoragePath: "doc-1_notes.md", MimeType: "text/markdown"}
	text, err := factory.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# Weekly notes\nitems" {
		t.Fatalf("text = %q", text)
	}
}

func TestFactoryRejectsBinaryAsPlaintext(t *testing.T) {
	storage := &memoryStorage{objects: map[string][]byte{
		"doc-1_blob.bin": {0xff, 0xfe, 0x00, 0x81},
	}}
	factory := NewFactory(storage)

	doc := &domain.Document{StoragePath: "doc-1_blob.bin", MimeType: "application/octet-stream"}
	_, err := factory.Extract(context.Background(), doc)
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFormatDispatch(t *testing.T) {
	cases := []struct {
		name string
		doc  *domain.Document
		pdf  bool
		xlsx bool
	}{
		{"pdf by mime", &domain.Document{MimeType: "application/pdf", StoragePath: "a"}, true, false},
		{"pdf by extension", &domain.Document{StoragePath: "doc-1_report.PDF"}, true, false},
		{"xlsx by mime", &domain.Document{MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", StoragePath: "a"}, false, true},
		{"xlsx by extension", &domain.Document{StoragePath: "doc-1_budget.xlsx"}, false, true},
		{"plaintext fallback", &domain.Document{MimeType: "text/plain", StoragePath: "doc-1_a.txt"}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isPDF(tc.doc); got != tc.pdf {
				t.Errorf("isPDF = %v, want %v", got, tc.pdf)
			}
			if got := isXLSX(tc.doc); got != tc.xlsx {
				t.Errorf("isXLSX = %v, want %v", got, tc.xlsx)
			}
		})
	}
}
