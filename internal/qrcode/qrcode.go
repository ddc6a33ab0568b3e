// Package qrcode renders ticket access keys into scannable PNG artifacts.
package qrcode

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	qr "github.com/skip2/go-qrcode"

	"github.com/tixgate/tixgate/internal/apperr"
)

const (
	qrFolder = "qrcodes"
	// qrSize is the rendered image size in pixels. Large enough to scan
	// from a phone screen under glare.
	qrSize = 500
)

// Issuer writes QR images under <baseDir>/qrcodes and returns relative
// references of the form /uploads/qrcodes/<file>, never absolute URLs, so
// the serving host can change without data migration.
type Issuer struct {
	baseDir string
	now     func() time.Time
}

func NewIssuer(baseDir string) *Issuer {
	return &Issuer{baseDir: baseDir, now: time.Now}
}

// Issue renders payload into a fresh timestamped PNG. The image content is a
// deterministic function of the payload; the filename is not, since each
// call writes a new file. Rendering uses the highest error-correction level
// so codes survive imperfect door lighting.
func (i *Issuer) Issue(payload string) (string, error) {
	dir := filepath.Join(i.baseDir, qrFolder)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", apperr.Render("creating qr code directory", err)
	}

	filename := fmt.Sprintf("ticket_%s_%d.png", payload, i.now().UnixMilli())
	if err := qr.WriteFile(payload, qr.Highest, qrSize, filepath.Join(dir, filename)); err != nil {
		return "", apperr.Render("encoding qr code image", err)
	}

	return "/uploads/" + qrFolder + "/" + filename, nil
}
