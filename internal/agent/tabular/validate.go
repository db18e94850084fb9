package tabular

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenPatterns rejects persistence, IO, process and mutation
// constructs before the snippet ever reaches the parser. The parser's
// closed grammar is the real barrier; the denylist exists so rejections
// carry a specific reason instead of a generic parse error.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.to_sql\s*\(`),
	regexp.MustCompile(`\.to_csv\s*\(`),
	regexp.MustCompile(`\.to_excel\s*\(`),
	regexp.MustCompile(`\.to_json\s*\(`),
	regexp.MustCompile(`\.to_pickle\s*\(`),
	regexp.MustCompile(`\.to_parquet\s*\(`),
	regexp.MustCompile(`\.to_hdf\s*\(`),
	regexp.MustCompile(`\.to_feather\s*\(`),
	regexp.MustCompile(`\bopen\s*\(`),
	regexp.MustCompile(`\bexec\s*\(`),
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bimport\s+`),
	regexp.MustCompile(`\bfrom\s+\w+\s+import`),
	regexp.MustCompile(`\b__\w+__\b`),
	regexp.MustCompile(`\bos\.`),
	regexp.MustCompile(`\bsys\.`),
	regexp.MustCompile(`\bsubprocess\.`),
	regexp.MustCompile(`\bshutil\.`),
	regexp.MustCompile(`\brequests\.`),
	regexp.MustCompile(`\burllib\.`),
	regexp.MustCompile(`\.drop\s*\(`),
	regexp.MustCompile(`inplace\s*=\s*true`),
	regexp.MustCompile(`\bdel\s+`),
	regexp.MustCompile(`\.pop\s*\(`),
	regexp.MustCompile(`\.insert\s*\(`),
	regexp.MustCompile(`\[[^\]]*\]\s*=[^=]`),
}

var (
	dfReassignRe   = regexp.MustCompile(`(?m)^\s*df\s*=[^=]`)
	dfDerivedRe    = regexp.MustCompile(`(?m)^\s*df\s*=\s*df[.\[]`)
	assignPrefixRe = regexp.MustCompile(`^\s*(?:df|result)\s*=\s*`)
)

// ValidateReadOnly checks the snippet against the denylist and then
// requires it to parse in the supported expression grammar. Pure function
// of the text.
func (a *Agent) ValidateReadOnly(query string) (bool, string) {
	lower := strings.ToLower(query)

	for _, pattern := range forbiddenPatterns {
		if pattern.MatchString(lower) {
			return false, fmt.Sprintf("forbidden pattern detected: %s", pattern.String())
		}
	}

	if dfReassignRe.MatchString(query) && !dfDerivedRe.MatchString(query) {
		return false, "direct dataframe reassignment not allowed"
	}

	if _, err := parseExpression(stripAssignment(query)); err != nil {
		return false, fmt.Sprintf("unsupported expression: %v", err)
	}

	return true, ""
}

// stripAssignment removes an allowed leading "df =" or "result =" target
// so the remainder is a plain expression.
func stripAssignment(query string) string {
	return assignPrefixRe.ReplaceAllString(strings.TrimSpace(query), "")
}
