// Package extract converts uploaded files to searchable text.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Extractor is the document-to-text collaborator. Implementations may call
// OCR or parsing services; failures degrade ingestion to a fallback text, they
// never abort it.
type Extractor interface {
	ExtractText(ctx context.Context, fileName, mimeType string, data []byte) (string, error)
}

// FallbackText is the degraded extraction result used when the extractor
// fails or has nothing to say about the file.
func FallbackText(fileName string) string {
	return fmt.Sprintf("File uploaded: %s", fileName)
}

// maxExtractedLen bounds extracted text so a single large upload cannot blow
// up the embedding input.
const maxExtractedLen = 20000

// PlainText extracts content from text-like files and reports everything else
// as unsupported.
type PlainText struct{}

func NewPlainText() *PlainText { return &PlainText{} }

func (e *PlainText) ExtractText(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	if !isTextual(mimeType) {
		return "", fmt.Errorf("unsupported content type: %s", mimeType)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %s is not valid UTF-8", fileName)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("file %s contains no text", fileName)
	}
	if len(text) > maxExtractedLen {
		cut := maxExtractedLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text, nil
}

func isTextual(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/xml", "application/x-yaml", "text/markdown":
		return true
	}
	return false
}
