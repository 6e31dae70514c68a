package api

import (
	"fmt"
	"strings"
	"unicode"

	"content-review-orchestrator/internal/domain"
)

const maxContentKeyPart = 200

// validateContentRef keeps content ids usable as object-store key segments.
func validateContentRef(ref domain.ContentRef) error {
	if err := validateKeyPart("content_id", ref.ID); err != nil {
		return err
	}
	return validateKeyPart("content_type", ref.Type)
}

func validateKeyPart(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) > maxContentKeyPart {
		return fmt.Errorf("%s exceeds %d bytes", field, maxContentKeyPart)
	}
	for _, r := range value {
		if r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%s contains %q", field, r)
		}
	}
	return nil
}
