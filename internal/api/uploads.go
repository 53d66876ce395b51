package api

import (
	"context"        // Upload context
	"fmt"            // Message formatting
	"mime/multipart" // Uploaded file headers
	"net/http"       // HTTP status codes
	"strings"        // Content-type matching

	"oficina/internal/domain"  // Validation errors
	"oficina/internal/storage" // Object storage

	"github.com/gin-gonic/gin" // Gin web framework
)

// Accepted content types per upload kind
var (
	imageTypes      = []string{"image/png", "image/jpeg", "image/webp"}
	attachmentTypes = []string{"image/", "application/pdf", "text/plain"}
)

// uploadsEnabled answers 503 when no object store is configured
func uploadsEnabled(c *gin.Context, up storage.Uploader) bool {
	if up == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Armazenamento de arquivos não configurado"})
		return false
	}
	return true
}

// receiveFile reads one multipart file field, enforcing size and content type
func receiveFile(c *gin.Context, field string, maxSize int64, allowed []string) (*multipart.FileHeader, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+1<<20) // Room for the multipart envelope
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("%s é obrigatório (multipart, até %d bytes)", field, maxSize))
	}
	var msgs []string
	if fh.Size > maxSize {
		msgs = append(msgs, fmt.Sprintf("%s excede o tamanho máximo de %d bytes", field, maxSize))
	}
	if !allowedType(fh.Header.Get("Content-Type"), allowed) {
		msgs = append(msgs, fmt.Sprintf("tipo de arquivo não permitido em %s", field))
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}
	return fh, nil
}

func allowedType(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.HasPrefix(contentType, a) {
			return true
		}
	}
	return false
}

// storeFile uploads fh under prefix and returns its URL and content type
func storeFile(ctx context.Context, up storage.Uploader, prefix string, fh *multipart.FileHeader) (string, string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := up.Upload(ctx, storage.ObjectKey(prefix, fh.Filename), f, fh.Size, contentType)
	if err != nil {
		return "", "", err
	}
	return url, contentType, nil
}
