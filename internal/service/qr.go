package service

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
)

const maxQRImageBytes = 4 << 20

var zipMagic = []byte("PK\x03\x04")

// QRImage is a decoded QR code image.
type QRImage struct {
	Data        []byte
	ContentType string
	// Packaged is set when the image was extracted from a ZIP archive.
	Packaged bool
}

// DataURI renders the image as a base64 data URI.
func (i QRImage) DataURI() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// DecodeQRPayload turns the backend's QR payload (base64 or a data URI,
// optionally wrapping a ZIP archive) into an image.
func DecodeQRPayload(encoded string) (*QRImage, error) {
	raw, err := decodePayload(strings.TrimSpace(encoded))
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(raw, zipMagic) {
		return extractImage(raw)
	}

	ct := sniffImage(raw)
	if ct == "" {
		return nil, apperror.Newf(apperror.TypeQRProcessing,
			"QR payload is %s, not an image; please retry", http.DetectContentType(raw))
	}
	return &QRImage{Data: raw, ContentType: ct}, nil
}

func decodePayload(s string) ([]byte, error) {
	if s == "" {
		return nil, apperror.New(apperror.TypeQRProcessing, "QR payload is empty")
	}

	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, apperror.New(apperror.TypeQRProcessing, "malformed data URI in QR payload")
		}
		header, body := s[len("data:"):comma], s[comma+1:]
		if !strings.HasSuffix(header, ";base64") {
			data, err := url.PathUnescape(body)
			if err != nil {
				return nil, apperror.Wrap(apperror.TypeQRProcessing, "malformed data URI in QR payload", err)
			}
			return []byte(data), nil
		}
		s = body
	}

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, apperror.Wrap(apperror.TypeQRProcessing, "QR payload is not valid base64", lastErr)
}

func extractImage(raw []byte) (*QRImage, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apperror.Wrap(apperror.TypeQRProcessing, "QR archive could not be opened; please retry", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, apperror.Wrapf(apperror.TypeQRProcessing, err, "QR archive entry %s could not be read", f.Name)
		}
		if ct := sniffImage(data); ct != "" {
			return &QRImage{Data: data, ContentType: ct, Packaged: true}, nil
		}
	}
	return nil, apperror.New(apperror.TypeQRProcessing, "QR archive contains no image; please retry")
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxQRImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxQRImageBytes {
		return nil, fmt.Errorf("entry larger than %d bytes", maxQRImageBytes)
	}
	return data, nil
}

// sniffImage returns the image content type of data, or "" if it is not an
// image.
func sniffImage(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	// DetectContentType does not know SVG
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<svg")) {
		return "image/svg+xml"
	}
	return ""
}
