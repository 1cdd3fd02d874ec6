package service

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"pinboard/internal/model"
)

func uploadHeader(filename, contentType string, size int64) *multipart.FileHeader {
	h := &multipart.FileHeader{Filename: filename, Size: size}
	if contentType != "" {
		h.Header = textproto.MIMEHeader{"Content-Type": []string{contentType}}
	}
	return h
}

func TestReadAndValidateImage(t *testing.T) {
	content := "fake image bytes"

	tests := []struct {
		name    string
		header  *multipart.FileHeader
		maxSize int64
		wantErr error
	}{
		{
			name:    "valid jpeg",
			header:  uploadHeader("a.jpg", "image/jpeg", int64(len(content))),
			maxSize: 1024,
			wantErr: nil,
		},
		{
			name:    "valid webp",
			header:  uploadHeader("a.webp", "image/webp", int64(len(content))),
			maxSize: 1024,
			wantErr: nil,
		},
		{
			name:    "declared size over limit",
			header:  uploadHeader("a.jpg", "image/jpeg", 2048),
			maxSize: 1024,
			wantErr: model.ErrFileTooLarge,
		},
		{
			name:    "actual size over limit",
			header:  uploadHeader("a.jpg", "image/jpeg", 4),
			maxSize: 4,
			wantErr: model.ErrFileTooLarge,
		},
		{
			name:    "unsupported type",
			header:  uploadHeader("a.pdf", "application/pdf", int64(len(content))),
			maxSize: 1024,
			wantErr: model.ErrInvalidImageType,
		},
		{
			name:    "content type with charset parameter",
			header:  uploadHeader("a.png", "image/png; charset=binary", int64(len(content))),
			maxSize: 1024,
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := nopMultipartFile{strings.NewReader(content)}
			data, contentType, err := readAndValidateImage(file, tt.header, tt.maxSize)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(data, []byte(content)) {
				t.Error("returned data should match the upload")
			}
			if !model.IsAllowedImageType(contentType) {
				t.Errorf("content type %q should be one of the allowed types", contentType)
			}
		})
	}
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        string
	}{
		{"photo.PNG", "image/png", ".png"},
		{"photo.jpeg", "image/jpeg", ".jpeg"},
		{"noext", "image/png", ".png"},
		{"noext", "image/gif", ".gif"},
		{"noext", "image/webp", ".webp"},
		{"noext", "image/jpeg", ".jpg"},
	}

	for _, tt := range tests {
		if got := imageExtension(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("imageExtension(%q, %q) = %q, want %q", tt.filename, tt.contentType, got, tt.want)
		}
	}
}
