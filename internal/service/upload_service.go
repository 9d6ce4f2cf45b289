package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/metrics"
)

const uploadFolder = "chat"

// ObjectStore persists bytes under key and returns a URL for them.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

var attachmentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// AttachmentKind returns the message kind an allow-listed extension maps to.
func AttachmentKind(ext string) (domain.MessageKind, bool) {
	ct, ok := attachmentTypes[strings.ToLower(ext)]
	if !ok {
		return "", false
	}
	if strings.HasPrefix(ct, "image/") {
		return domain.KindImage, true
	}
	return domain.KindFile, true
}

type UploadService struct {
	store  ObjectStore
	logger *slog.Logger
}

func NewUploadService(store ObjectStore, logger *slog.Logger) *UploadService {
	return &UploadService{store: store, logger: logger}
}

// Accept checks filename against the allow-list and stores r under a fresh
// name in the chat folder. The store is not contacted for rejected files.
func (s *UploadService) Accept(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := attachmentTypes[ext]
	if !ok {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return "", &domain.UnsupportedTypeError{Filename: filename, Extension: ext}
	}

	key := uploadFolder + "/" + uuid.NewString() + ext
	url, err := s.store.Upload(ctx, key, r, contentType)
	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		return "", &domain.UploadError{Key: key, Err: err}
	}

	metrics.Uploads.WithLabelValues("stored").Inc()
	s.logger.Debug("attachment accepted", "key", key, "content_type", contentType)
	return url, nil
}
