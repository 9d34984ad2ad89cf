package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekicr/universal-clinic/internal/models"
)

// pdfBytes is enough of a PDF header for content sniffing.
var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("educationFile", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["educationFile"][0]
}

func TestUploadStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewUploadStore(dir, "/uploads", 1<<20)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }

	ref, err := store.Save(fileHeader(t, "../my diploma.pdf", pdfBytes))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000000-my_diploma.pdf", ref)

	got, err := os.ReadFile(filepath.Join(dir, "1700000000000-my_diploma.pdf"))
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	require.NoError(t, store.Remove(ref))
	_, err = os.Stat(filepath.Join(dir, "1700000000000-my_diploma.pdf"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(ref))
}

type flakyFile struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *flakyFile) Close() error {
	f.closed = true
	return f.closeErr
}

func TestCopyAndClose(t *testing.T) {
	ok := &flakyFile{}
	require.NoError(t, copyAndClose(ok, bytes.NewReader(pdfBytes), 1<<20))
	assert.True(t, ok.closed)
	assert.Equal(t, pdfBytes, ok.Bytes())

	flushFailed := errors.New("disk full")
	bad := &flakyFile{closeErr: flushFailed}
	assert.ErrorIs(t, copyAndClose(bad, bytes.NewReader(pdfBytes), 1<<20), flushFailed)
	assert.True(t, bad.closed)

	limited := &flakyFile{}
	require.NoError(t, copyAndClose(limited, bytes.NewReader(pdfBytes), 4))
	assert.Equal(t, "%PDF", limited.String())
}

func TestUploadStore_RejectsDisallowedType(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	_, err = store.Save(fileHeader(t, "script.sh", []byte("#!/bin/sh\necho hi\n")))
	assert.ErrorIs(t, err, ErrInvalidContentType)
}

func TestUploadStore_RejectsLargeFile(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), "/uploads", 8)
	require.NoError(t, err)

	_, err = store.Save(fileHeader(t, "cv.pdf", pdfBytes))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"cv.pdf":              "cv.pdf",
		"../../etc/passwd":    "passwd",
		`C:\docs\licence.png`: "licence.png",
		"..":                  "document",
		"a b&c.jpg":           "a_b_c.jpg",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), "sanitizeName(%q)", in)
	}
}

func TestAppointmentMessage(t *testing.T) {
	apt := &models.Appointment{
		AppointmentDate: time.Date(2030, 3, 4, 15, 30, 0, 0, time.UTC),
		Status:          models.StatusConfirmed,
	}
	assert.Equal(t, "Appointment confirmed with Dr. House on Mar 4 at 3:30 PM.", AppointmentMessage(apt, "House"))

	apt.Status = models.StatusCancelled
	assert.Contains(t, AppointmentMessage(apt, "House"), "was cancelled")

	apt.Status = models.StatusPending
	assert.Contains(t, AppointmentMessage(apt, "House"), "request received")
}

func TestNotificationService_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(got["phone"], "+0") {
			_, _ = w.Write([]byte(`{"success":false,"error":"Invalid phone number"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	svc := NewNotificationService("key-123", srv.URL, zerolog.Nop())

	require.NoError(t, svc.Send(context.Background(), "+15550001111", "hello"))
	assert.Equal(t, "key-123", got["key"])
	assert.Equal(t, "hello", got["message"])

	err := svc.Send(context.Background(), "+0000", "hello")
	require.Error(t, err)
	assert.Equal(t, "Invalid phone number", err.Error())
}

func TestNotificationService_SkipsWithoutKeyOrPhone(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	apt := &models.Appointment{Status: models.StatusPending}

	NewNotificationService("", srv.URL, zerolog.Nop()).
		NotifyAppointment(&models.User{Phone: "+15550001111"}, apt, "House")
	NewNotificationService("key", srv.URL, zerolog.Nop()).
		NotifyAppointment(&models.User{}, apt, "House")

	assert.Equal(t, 0, calls)
}
