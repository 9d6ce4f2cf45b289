package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/service"
	"github.com/noobsquad/chatcore/internal/transport/http/middleware"
)

const defaultMaxUploadBytes = 10 << 20

type Uploader interface {
	Accept(ctx context.Context, filename string, r io.Reader) (string, error)
}

type UploadHandler struct {
	uploads  Uploader
	maxBytes int64
	logger   *slog.Logger
}

func NewUploadHandler(uploads Uploader, maxBytes int64, logger *slog.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes, logger: logger}
}

type uploadResponse struct {
	FileURL     string             `json:"file_url"`
	MessageType domain.MessageKind `json:"message_type"`
}

// Upload stores the multipart "file" field and returns its URL. The client
// sends the URL back in an image or file message.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A file field is required")
		return
	}
	defer file.Close()

	url, err := h.uploads.Accept(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, "UNSUPPORTED_TYPE", "Unsupported file type")
		case errors.Is(err, domain.ErrUpload):
			h.logger.Error("upload attachment", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload file")
		default:
			h.logger.Error("upload attachment", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	kind, _ := service.AttachmentKind(filepath.Ext(header.Filename))
	writeJSON(w, http.StatusOK, uploadResponse{FileURL: url, MessageType: kind})
}
