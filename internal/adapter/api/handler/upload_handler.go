package handler

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/service"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
	"studyhub/pkg/response"
)

const defaultMaxUploadSize = 10 * 1024 * 1024

var allowedUploadPrefixes = []string{"image/", "audio/", "video/", "application/pdf"}

type UploadHandler struct {
	blobStore   service.BlobStore
	maxFileSize int64
}

func NewUploadHandler(blobStore service.BlobStore, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		blobStore:   blobStore,
		maxFileSize: maxFileSize,
	}
}

// UploadFile stores a chat attachment and returns its public URL along with
// the message type a client should send it as.
func (h *UploadHandler) UploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.Validation("Missing or invalid file", err))
	}

	if file.Size > h.maxFileSize {
		logger.Warn("File too large: %d bytes (max: %d)", file.Size, h.maxFileSize)
		return response.Error(c, errors.Validation(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	contentType := file.Header.Get("Content-Type")
	if !isAllowedUploadType(contentType) {
		return response.Error(c, errors.Validation("File type not supported", nil))
	}

	folder := sanitizeFolderName(c.FormValue("folder"))

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	url, err := h.blobStore.UploadBlob(c.Request().Context(), src, contentType, folder)
	if err != nil {
		logger.Error("UploadFile Error: storage rejected %s: %v", file.Filename, err)
		return response.Error(c, errors.BackendUnavailable("Failed to upload file", err))
	}
	logger.Debug("Uploaded %s for %s to %s", file.Filename, getUserIDFromContext(c), url)

	return response.Created(c, map[string]interface{}{
		"url":          url,
		"file_name":    file.Filename,
		"size":         file.Size,
		"message_type": messageTypeFor(contentType),
	})
}

func isAllowedUploadType(contentType string) bool {
	for _, prefix := range allowedUploadPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func messageTypeFor(contentType string) entity.MessageType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return entity.MessageTypeImage
	case strings.HasPrefix(contentType, "audio/"):
		return entity.MessageTypeAudio
	case strings.HasPrefix(contentType, "video/"):
		return entity.MessageTypeVideo
	}
	return entity.MessageTypeFile
}

// sanitizeFolderName keeps [a-z0-9-_/] and strips leading slashes and dot segments.
func sanitizeFolderName(folder string) string {
	folder = strings.ToLower(strings.TrimSpace(folder))
	var b strings.Builder
	for _, r := range folder {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '/' {
			b.WriteRune(r)
		}
	}
	var parts []string
	for _, p := range strings.Split(b.String(), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "attachments"
	}
	return strings.Join(parts, "/")
}
