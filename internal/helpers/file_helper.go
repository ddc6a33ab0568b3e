package helpers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

const maxImageSizeBytes = 5 * 1024 * 1024 // 5MB

var allowedImageMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// ReadImageUpload pulls a multipart image field into memory, enforcing size
// and sniffed mime type, and returns the bytes plus the original extension.
func ReadImageUpload(c *gin.Context, field string) ([]byte, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("file field %q is required", field)
	}

	if fileHeader.Size > maxImageSizeBytes {
		return nil, "", fmt.Errorf("file size exceeds maximum limit of %d MB", maxImageSizeBytes/(1024*1024))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}

	mimeType := http.DetectContentType(data)
	allowed := false
	for _, allowedType := range allowedImageMimeTypes {
		if mimeType == allowedType {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, "", fmt.Errorf("invalid file type %q. Allowed types: %v", mimeType, allowedImageMimeTypes)
	}

	return data, filepath.Ext(fileHeader.Filename), nil
}
