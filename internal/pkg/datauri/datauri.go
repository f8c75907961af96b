// Package datauri reads and writes base64 data URIs as produced by a browser
// file reader.
package datauri

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrMalformed = errors.New("malformed data uri")

// Encode builds "data:<mediaType>;base64,<payload>"
func Encode(mediaType string, data []byte) string {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Payload returns the encoded data after the first comma
func Payload(uri string) (string, error) {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok || payload == "" {
		return "", ErrMalformed
	}
	return payload, nil
}

// MediaType returns the declared media type, or "" when absent
func MediaType(uri string) string {
	header, _, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return ""
	}
	mt, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	return mt
}

// Decode returns the raw bytes of a base64 data URI or a bare base64 payload
func Decode(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		p, err := Payload(s)
		if err != nil {
			return nil, err
		}
		s = p
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformed
	}
	return data, nil
}

// ReadFile loads a local file as a data URI
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return Encode(mediaType, data), nil
}
