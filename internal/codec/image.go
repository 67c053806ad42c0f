package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxImageBytes bounds a single selected file.
const MaxImageBytes = 8 << 20

var (
	ErrNotImage      = errors.New("codec: selected file is not an image")
	ErrImageTooLarge = errors.New("codec: selected file is too large")
)

// File is a user-selected file for a file input.
type File struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BytesFile wraps in-memory content as a File.
func BytesFile(name string, b []byte) File {
	return File{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}
}

// Files maps file-input names to their selection.
type Files map[string]File

// ImageData reads f and encodes it as a base64 data URL. The media type is
// sniffed from the content; a non-image is rejected.
func ImageData(f File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("codec: %s: no content", f.Filename)
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > MaxImageBytes {
		return "", fmt.Errorf("%w: %s", ErrImageTooLarge, f.Filename)
	}
	mime := http.DetectContentType(b)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s (%s)", ErrNotImage, f.Filename, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
