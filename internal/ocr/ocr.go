// Package ocr turns a photograph of a gas meter into a numeric candidate.
// Extraction is best-effort: any internal failure degrades to a nil value
// and the caller falls back to manual entry.
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
)

// Result carries the extracted counter value. Nil means the image could not
// be read; it is never an error for the caller.
type Result struct {
	Value *float64 `json:"value"`
}

// Extractor is the OCR collaborator contract. Implementations must not
// return errors to the caller; every failure resolves to a nil value.
type Extractor interface {
	Extract(ctx context.Context, dataURL string) Result
}

var dataURLPattern = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9\-.+]+);base64,(.*)$`)

// DecodeDataURL splits a base64 data URL into its mime type and raw bytes.
func DecodeDataURL(dataURL string) (mimeType string, data []byte, err error) {
	matches := dataURLPattern.FindStringSubmatch(dataURL)
	if matches == nil {
		return "", nil, fmt.Errorf("invalid base64 data URL")
	}
	data, err = base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return matches[1], data, nil
}
