package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/logger"
)

// threatRule is one case-insensitive content rule within a category.
type threatRule struct {
	pattern  *regexp.Regexp
	severity constants.Severity
}

// threatCategory is an ordered list of rules sharing a violation type.
type threatCategory struct {
	violationType constants.ViolationType
	rules         []threatRule
}

func rule(severity constants.Severity, expr string) threatRule {
	return threatRule{pattern: regexp.MustCompile(`(?i)` + expr), severity: severity}
}

// ThreatPatternScanner screens conversational-assistant request bodies before
// they reach any downstream processing. Scanning is read-only: the body is
// never mutated. Category order matters: prompt-injection runs first and any
// CRITICAL match short-circuits the remaining categories and blocks the
// request. Lower-severity matches accumulate without blocking.
type ThreatPatternScanner struct {
	categories []threatCategory
	logger     logger.Logger
	blockHigh  bool
}

// NewThreatPatternScanner creates a scanner with the built-in rule set.
// blockHigh additionally blocks on HIGH-severity matches when the deployment
// configures a stricter threshold.
func NewThreatPatternScanner(blockHigh bool, log logger.Logger) *ThreatPatternScanner {
	return &ThreatPatternScanner{
		categories: builtinCategories(),
		logger:     log.WithComponent("threat_scanner"),
		blockHigh:  blockHigh,
	}
}

func builtinCategories() []threatCategory {
	return []threatCategory{
		{
			violationType: constants.ViolationPromptInjection,
			rules: []threatRule{
				rule(constants.SeverityCritical, `ignore\s+(all\s+)?previous\s+instructions`),
				rule(constants.SeverityCritical, `disregard\s+(all\s+)?(prior|previous)\s+(instructions|prompts)`),
				rule(constants.SeverityCritical, `you\s+are\s+no\s+longer\s+(an?\s+)?assistant`),
				rule(constants.SeverityCritical, `reveal\s+(your\s+)?system\s+prompt`),
				rule(constants.SeverityHigh, `system\s+prompt`),
				rule(constants.SeverityHigh, `pretend\s+(to\s+be|you\s+are)`),
				rule(constants.SeverityHigh, `jailbreak`),
				rule(constants.SeverityMedium, `act\s+as\s+(an?\s+)?(admin|administrator|developer)`),
			},
		},
		{
			violationType: constants.ViolationDataExtraction,
			rules: []threatRule{
				rule(constants.SeverityCritical, `(dump|export)\s+(the\s+)?(entire\s+)?database`),
				rule(constants.SeverityHigh, `(list|show|give)\s+(me\s+)?all\s+(tenants|organisations|organizations|users|residents)`),
				rule(constants.SeverityHigh, `database\s+schema`),
				rule(constants.SeverityHigh, `(api[_\s-]?key|password|secret\s+key|connection\s+string)`),
				rule(constants.SeverityMedium, `select\s+\*\s+from`),
			},
		},
		{
			violationType: constants.ViolationCrossTenant,
			rules: []threatRule{
				rule(constants.SeverityCritical, `switch\s+(to\s+)?tenant`),
				rule(constants.SeverityHigh, `(other|another|different)\s+(tenant|organisation|organization|care\s+home)'?s?\s+(data|records|residents)`),
				rule(constants.SeverityHigh, `tenant[_\s-]?id\s*[:=]`),
			},
		},
		{
			violationType: constants.ViolationMaliciousContent,
			rules: []threatRule{
				rule(constants.SeverityHigh, `<\s*script`),
				rule(constants.SeverityHigh, `javascript\s*:`),
				rule(constants.SeverityHigh, `on(error|load|click)\s*=`),
				rule(constants.SeverityMedium, `(eval|exec)\s*\(`),
				rule(constants.SeverityMedium, `base64\s*,`),
			},
		},
	}
}

// Scan evaluates the serialized body against every category in order and
// applies the structural size and depth bounds. Structural violations are
// MEDIUM severity and recorded but non-blocking.
func (s *ThreatPatternScanner) Scan(ctx context.Context, serializedBody []byte) *models.ScanResult {
	result := &models.ScanResult{}
	body := string(serializedBody)

	for _, category := range s.categories {
		if s.scanCategory(ctx, category, body, result) {
			// CRITICAL match: remaining categories are not evaluated.
			break
		}
	}

	s.checkStructure(serializedBody, result)
	return result
}

// scanCategory applies one category's rules. Returns true when a blocking
// match short-circuits the scan.
func (s *ThreatPatternScanner) scanCategory(ctx context.Context, category threatCategory, body string, result *models.ScanResult) bool {
	for _, r := range category.rules {
		match := r.pattern.FindString(body)
		if match == "" {
			continue
		}

		blocked := r.severity == constants.SeverityCritical ||
			(s.blockHigh && r.severity == constants.SeverityHigh)
		result.Violations = append(result.Violations,
			models.NewSecurityViolation(category.violationType, r.severity, match, blocked))

		s.logger.Warn(ctx, "threat pattern matched",
			logger.String("violation_type", string(category.violationType)),
			logger.String("severity", string(r.severity)),
			logger.String("evidence", match),
			logger.Bool("blocked", blocked),
		)

		if blocked {
			result.Blocked = true
			return true
		}
	}
	return false
}

// checkStructure enforces the serialized-size and nesting-depth bounds
// regardless of content.
func (s *ThreatPatternScanner) checkStructure(serializedBody []byte, result *models.ScanResult) {
	if len(serializedBody) > constants.MaxSerializedBodyBytes {
		result.Violations = append(result.Violations, models.NewSecurityViolation(
			constants.ViolationMaliciousContent, constants.SeverityMedium,
			fmt.Sprintf("serialized body %d bytes exceeds limit %d", len(serializedBody), constants.MaxSerializedBodyBytes),
			false))
	}
	if depth := measureNestingDepth(serializedBody); depth > constants.MaxBodyNestingDepth {
		result.Violations = append(result.Violations, models.NewSecurityViolation(
			constants.ViolationMaliciousContent, constants.SeverityMedium,
			fmt.Sprintf("body nesting depth %d exceeds limit %d", depth, constants.MaxBodyNestingDepth),
			false))
	}
}

// measureNestingDepth counts the deepest brace/bracket nesting in the
// serialized body, ignoring brackets inside JSON strings.
func measureNestingDepth(body []byte) int {
	depth, maxDepth := 0, 0
	inString := false
	escaped := false

	for _, b := range body {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case !inString && (b == '{' || b == '['):
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case !inString && (b == '}' || b == ']'):
			depth--
		}
	}
	return maxDepth
}
