package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// OwnerID must be lowercase letters, digits, hyphen, underscore, 1-64 chars.
var ownerIdRx = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

var providers = map[string]bool{"openai": true, "gemini": true, "anthropic": true, "ollama": true}

func OwnerID(v string) error {
	if v == "" {
		return fmt.Errorf("ownerId is required")
	}
	if !ownerIdRx.MatchString(v) {
		return fmt.Errorf("ownerId must match %s", ownerIdRx.String())
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field, v string, limit int) error {
	if len(v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// FileName rejects empty names and path traversal in upload names.
func FileName(v string) error {
	if v == "" {
		return fmt.Errorf("fileName is required")
	}
	if len(v) > 255 {
		return fmt.Errorf("fileName exceeds 255 characters")
	}
	if strings.Contains(v, "/") || strings.Contains(v, "\\") || strings.Contains(v, "..") {
		return fmt.Errorf("fileName must not contain path separators")
	}
	return nil
}

// -------- Request specific helpers ----------

// Ingest validates input for capturing a new memory.
func Ingest(ownerId, fileName, fileData string) error {
	if err := OwnerID(ownerId); err != nil {
		return err
	}
	if err := FileName(fileName); err != nil {
		return err
	}
	if err := NonEmpty("fileData", fileData); err != nil {
		return err
	}
	return nil
}

// Search validates a similarity search request.
func Search(ownerId, query string, threshold float64, topK int) error {
	if err := OwnerID(ownerId); err != nil {
		return err
	}
	if err := NonEmpty("query", query); err != nil {
		return err
	}
	if threshold < -1 || threshold > 1 {
		return fmt.Errorf("threshold must be within [-1,1]")
	}
	if topK < 0 || topK > 100 {
		return fmt.Errorf("topK must be within [0,100]")
	}
	return nil
}

// ModelConfig validates a per-owner model configuration update.
func ModelConfig(ownerId, provider string) error {
	if err := OwnerID(ownerId); err != nil {
		return err
	}
	if err := NonEmpty("provider", provider); err != nil {
		return err
	}
	if !providers[provider] {
		return fmt.Errorf("provider must be one of openai, gemini, anthropic, ollama")
	}
	return nil
}
