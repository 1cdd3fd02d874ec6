package service

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"reflect"
	"strings"
	"testing"

	"pinboard/internal/model"
	"pinboard/internal/queue"
)

type mockImageStore struct {
	uploadFn func(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)

	uploadCalls int
	deleteCalls int
	deletedKeys []string
}

func (m *mockImageStore) UploadPinImage(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	m.uploadCalls++
	if m.uploadFn != nil {
		return m.uploadFn(ctx, userID, file, header)
	}
	return &model.UploadResult{
		URL: "https://cdn.example.com/1/1700000000000.jpg",
		Key: "1/1700000000000.jpg",
	}, nil
}

func (m *mockImageStore) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("image-bytes")), "image/jpeg", nil
}

func (m *mockImageStore) DeleteObject(ctx context.Context, key string) error {
	m.deleteCalls++
	m.deletedKeys = append(m.deletedKeys, key)
	return nil
}

type mockPublisher struct {
	publishCalls []queue.PinEvent
	publishErr   error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.PinEvent) (string, error) {
	m.publishCalls = append(m.publishCalls, event)
	if m.publishErr != nil {
		return "", m.publishErr
	}
	return "1700000000000-0", nil
}

func newTestPinService(pinRepo *mockPinRepository, store *mockImageStore, pub *mockPublisher) *PinService {
	return NewPinService(pinRepo, &mockUserRepository{}, &mockProfileRepository{}, &mockEngagementRepository{}, store, pub)
}

func testUpload() (*CreatePinInput, *multipart.FileHeader) {
	header := &multipart.FileHeader{Filename: "photo.png", Size: 1024}
	return &CreatePinInput{
		Title:  "My pin",
		File:   nopMultipartFile{strings.NewReader("fake image")},
		Header: header,
	}, header
}

// nopMultipartFile adapts a strings.Reader to multipart.File for tests.
type nopMultipartFile struct {
	*strings.Reader
}

func (nopMultipartFile) Close() error { return nil }

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain list", "food,travel,diy", []string{"food", "travel", "diy"}},
		{"spaces and empty entries", "food, , recipe", []string{"food", "recipe"}},
		{"leading and trailing whitespace", "  sunset , beach  ", []string{"sunset", "beach"}},
		{"empty string", "", []string{}},
		{"only commas", ",,,", []string{}},
		{"single tag", "minimal", []string{"minimal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPinService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *CreatePinInput)
		wantErr error
	}{
		{
			name:    "empty title",
			mutate:  func(in *CreatePinInput) { in.Title = "" },
			wantErr: model.ErrTitleRequired,
		},
		{
			name:    "whitespace title",
			mutate:  func(in *CreatePinInput) { in.Title = "   " },
			wantErr: model.ErrTitleRequired,
		},
		{
			name:    "title too long",
			mutate:  func(in *CreatePinInput) { in.Title = strings.Repeat("x", model.MaxPinTitleLength+1) },
			wantErr: model.ErrTitleTooLong,
		},
		{
			name:    "missing image",
			mutate:  func(in *CreatePinInput) { in.File = nil; in.Header = nil },
			wantErr: model.ErrImageRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockImageStore{}
			pinRepo := &mockPinRepository{}
			svc := newTestPinService(pinRepo, store, &mockPublisher{})

			in, _ := testUpload()
			tt.mutate(in)

			_, err := svc.Create(context.Background(), 1, in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}

			// Validation failures must happen before any upload
			if store.uploadCalls != 0 {
				t.Error("upload should not run when validation fails")
			}
			if pinRepo.createCalls != 0 {
				t.Error("insert should not run when validation fails")
			}
		})
	}
}

func TestPinService_Create_UploadFailureStopsInsert(t *testing.T) {
	store := &mockImageStore{
		uploadFn: func(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
			return nil, model.ErrFileTooLarge
		},
	}
	pinRepo := &mockPinRepository{}
	svc := newTestPinService(pinRepo, store, &mockPublisher{})

	in, _ := testUpload()
	_, err := svc.Create(context.Background(), 1, in)

	if !errors.Is(err, model.ErrFileTooLarge) {
		t.Errorf("error = %v, want %v", err, model.ErrFileTooLarge)
	}
	if pinRepo.createCalls != 0 {
		t.Error("insert should not run when upload fails")
	}
}

func TestPinService_Create_InsertFailureLeavesUpload(t *testing.T) {
	// The upload happens before the insert. When the insert fails, the
	// uploaded object is orphaned on purpose: no cleanup runs.
	store := &mockImageStore{}
	insertErr := errors.New("insert failed")
	pinRepo := &mockPinRepository{
		createFn: func(ctx context.Context, pin *model.Pin) error {
			return insertErr
		},
	}
	pub := &mockPublisher{}
	svc := newTestPinService(pinRepo, store, pub)

	in, _ := testUpload()
	_, err := svc.Create(context.Background(), 1, in)

	if !errors.Is(err, insertErr) {
		t.Errorf("error = %v, want wrapped %v", err, insertErr)
	}
	if store.uploadCalls != 1 {
		t.Errorf("upload calls = %d, want 1", store.uploadCalls)
	}
	if store.deleteCalls != 0 {
		t.Error("no cleanup should run after a failed insert")
	}
	if len(pub.publishCalls) != 0 {
		t.Error("no event should be published after a failed insert")
	}
}

func TestPinService_Create_Success(t *testing.T) {
	store := &mockImageStore{}
	pinRepo := &mockPinRepository{
		createFn: func(ctx context.Context, pin *model.Pin) error {
			pin.ID = 77
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestPinService(pinRepo, store, pub)

	in, _ := testUpload()
	in.Title = "  Cozy reading nook  "
	in.Description = "   "
	in.TagsRaw = "home, books , "

	pin, err := svc.Create(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if pin.Title != "Cozy reading nook" {
		t.Errorf("title = %q, want trimmed title", pin.Title)
	}
	if pin.Description != nil {
		t.Error("blank description should be stored as null")
	}
	if !reflect.DeepEqual([]string(pin.Tags), []string{"home", "books"}) {
		t.Errorf("tags = %v, want [home books]", pin.Tags)
	}
	if pin.ImageURL == "" || pin.ImageKey == "" {
		t.Error("pin should reference the uploaded image")
	}

	if len(pub.publishCalls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(pub.publishCalls))
	}
	if ev := pub.publishCalls[0]; ev.Type != queue.EventPinCreated || ev.PinID != 77 {
		t.Errorf("published event = %+v, want pin_created for pin 77", ev)
	}
}

func TestPinService_Create_PublishFailureIsNotFatal(t *testing.T) {
	store := &mockImageStore{}
	pinRepo := &mockPinRepository{
		createFn: func(ctx context.Context, pin *model.Pin) error {
			pin.ID = 5
			return nil
		},
	}
	pub := &mockPublisher{publishErr: errors.New("stream unavailable")}
	svc := newTestPinService(pinRepo, store, pub)

	in, _ := testUpload()
	pin, err := svc.Create(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("Create should succeed despite publish failure, got: %v", err)
	}
	if pin.ID != 5 {
		t.Errorf("pin ID = %d, want 5", pin.ID)
	}
}

func TestPinService_Delete_OwnerOnly(t *testing.T) {
	store := &mockImageStore{}
	pinRepo := &mockPinRepository{
		getByIDFn: func(ctx context.Context, pinID int64) (*model.Pin, error) {
			return &model.Pin{ID: pinID, UserID: 1, ImageKey: "1/img.jpg"}, nil
		},
		deleteFn: func(ctx context.Context, pinID, userID int64) error {
			if userID != 1 {
				return model.ErrNotPinOwner
			}
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestPinService(pinRepo, store, pub)

	// Someone else tries to delete
	err := svc.Delete(context.Background(), 10, 2)
	if !errors.Is(err, model.ErrNotPinOwner) {
		t.Errorf("error = %v, want %v", err, model.ErrNotPinOwner)
	}
	if store.deleteCalls != 0 {
		t.Error("image should not be deleted when ownership check fails")
	}
	if len(pub.publishCalls) != 0 {
		t.Error("no event should be published when ownership check fails")
	}

	// The owner deletes
	if err := svc.Delete(context.Background(), 10, 1); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if store.deleteCalls != 1 || store.deletedKeys[0] != "1/img.jpg" {
		t.Errorf("image cleanup = %v, want key 1/img.jpg deleted once", store.deletedKeys)
	}
	if len(pub.publishCalls) != 1 || pub.publishCalls[0].Type != queue.EventPinDeleted {
		t.Error("expected one pin_deleted event")
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		ext   string
		want  string
	}{
		{"simple title", "Sunset", ".jpg", "Sunset.jpg"},
		{"spaces become dashes", "Cozy reading nook", ".png", "Cozy-reading-nook.png"},
		{"unsafe characters dropped", "50% off! (really)", ".jpg", "50-off-really.jpg"},
		{"empty title falls back", "!!!", ".gif", "pin.gif"},
		{"missing extension defaults", "Plain", "", "Plain.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := downloadFilename(tt.title, tt.ext); got != tt.want {
				t.Errorf("downloadFilename(%q, %q) = %q, want %q", tt.title, tt.ext, got, tt.want)
			}
		})
	}
}
