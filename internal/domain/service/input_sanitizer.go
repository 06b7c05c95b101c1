package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/logger"
)

var (
	scriptBlockPattern      = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	markupTagPattern        = regexp.MustCompile(`<[^>]*>`)
	mustacheTemplatePattern = regexp.MustCompile(`\{\{[^}]*\}\}`)
	dollarTemplatePattern   = regexp.MustCompile(`\$\{[^}]*\}`)
	javascriptURIPattern    = regexp.MustCompile(`(?i)javascript\s*:`)
)

// careContextAllowList is the closed set of field names permitted in the care
// context substructure of an assistant request. Unknown fields are dropped,
// and every drop is recorded for audit rather than silently ignored.
var careContextAllowList = map[string]bool{
	"resident_id":      true,
	"care_plan_id":     true,
	"visit_type":       true,
	"shift":            true,
	"location":         true,
	"room":             true,
	"observation_type": true,
	"medication_round": true,
	"notes":            true,
}

// InputSanitizer cleanses assistant input after scanning and before the body
// reaches business logic.
type InputSanitizer struct {
	maxTextLength int
	logger        logger.Logger
}

// NewInputSanitizer creates a sanitizer truncating free text at
// maxTextLength runes; zero selects the default limit.
func NewInputSanitizer(maxTextLength int, log logger.Logger) *InputSanitizer {
	if maxTextLength <= 0 {
		maxTextLength = constants.DefaultFreeTextLimit
	}
	return &InputSanitizer{
		maxTextLength: maxTextLength,
		logger:        log.WithComponent("input_sanitizer"),
	}
}

// SanitizeText strips markup tags, script constructs and template
// interpolation syntax from a free-text field, then truncates over-length
// text with an explicit marker.
func (s *InputSanitizer) SanitizeText(text string) string {
	cleaned := scriptBlockPattern.ReplaceAllString(text, "")
	cleaned = markupTagPattern.ReplaceAllString(cleaned, "")
	cleaned = mustacheTemplatePattern.ReplaceAllString(cleaned, "")
	cleaned = dollarTemplatePattern.ReplaceAllString(cleaned, "")
	cleaned = javascriptURIPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > s.maxTextLength {
		cleaned = string(runes[:s.maxTextLength]) + constants.TruncationMarker
	}
	return cleaned
}

// SanitizeCareContext enforces the allow-list over the care context
// substructure. String values are sanitized like free text; unknown fields
// are dropped and returned so the caller can audit the drops.
func (s *InputSanitizer) SanitizeCareContext(ctx context.Context, careContext map[string]interface{}) (map[string]interface{}, []string) {
	if careContext == nil {
		return nil, nil
	}

	sanitized := make(map[string]interface{}, len(careContext))
	var dropped []string
	for key, value := range careContext {
		if !careContextAllowList[strings.ToLower(key)] {
			dropped = append(dropped, key)
			continue
		}
		if str, ok := value.(string); ok {
			sanitized[strings.ToLower(key)] = s.SanitizeText(str)
		} else {
			sanitized[strings.ToLower(key)] = value
		}
	}

	if len(dropped) > 0 {
		s.logger.Warn(ctx, "unknown care context fields dropped",
			logger.Int("dropped_count", len(dropped)),
			logger.Any("fields", dropped),
		)
	}
	return sanitized, dropped
}
