package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("file type is not allowed")
)

// AllowedCredentialTypes lists the document formats accepted as credentials.
var AllowedCredentialTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadStore writes credential documents to a local directory that is also
// served statically under URLPrefix.
type UploadStore struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
	now       func() time.Time
}

func NewUploadStore(dir, urlPrefix string, maxBytes int64) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadStore{Dir: dir, URLPrefix: urlPrefix, MaxBytes: maxBytes, now: time.Now}, nil
}

// Save validates and stores the file as "<unix-millis>-<name>" and returns the
// public reference path.
func (u *UploadStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > u.MaxBytes {
		return "", ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", err
	}
	if !allowedType(mt) {
		return "", ErrInvalidContentType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s", u.now().UnixMilli(), sanitizeName(fh.Filename))
	dst, err := os.Create(filepath.Join(u.Dir, name))
	if err != nil {
		return "", err
	}
	if err := copyAndClose(dst, src, u.MaxBytes+1); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return path.Join(u.URLPrefix, name), nil
}

// copyAndClose writes at most limit bytes and always closes dst. A failed
// Close is reported since it can mean the file was not fully flushed.
func copyAndClose(dst io.WriteCloser, src io.Reader, limit int64) error {
	_, copyErr := io.Copy(dst, io.LimitReader(src, limit))
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// Remove deletes a file previously returned by Save. Unknown references are ignored.
func (u *UploadStore) Remove(ref string) error {
	name := strings.TrimPrefix(ref, u.URLPrefix)
	name = filepath.Base(strings.TrimPrefix(name, "/"))
	if name == "." || name == "/" || name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(u.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func allowedType(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if AllowedCredentialTypes[m.String()] {
			return true
		}
	}
	return false
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}
