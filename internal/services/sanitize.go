package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlSanitizer = bluemonday.StrictPolicy()

// sanitizeText strips any markup from user-supplied free text and trims
// surrounding whitespace.
func sanitizeText(value string) string {
	return strings.TrimSpace(htmlSanitizer.Sanitize(value))
}
