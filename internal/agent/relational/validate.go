package relational

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenKeywords are mutating SQL keywords rejected anywhere in the
// query, as whole words, regardless of case. The whole-word match catches
// keywords smuggled inside subqueries.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "MERGE", "REPLACE", "CALL",
}

var forbiddenKeywordRe = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, kw := range forbiddenKeywords {
		res[kw] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return res
}()

// ValidateReadOnly checks that the SQL text is a single read-only SELECT
// (or WITH-prefixed CTE) statement. Pure function of the query text.
func (a *Agent) ValidateReadOnly(query string) (bool, string) {
	queryUpper := strings.ToUpper(strings.TrimSpace(query))

	if !strings.HasPrefix(queryUpper, "SELECT") && !strings.HasPrefix(queryUpper, "WITH") {
		return false, "query must start with SELECT or WITH"
	}

	for _, kw := range forbiddenKeywords {
		if forbiddenKeywordRe[kw].MatchString(queryUpper) {
			return false, fmt.Sprintf("forbidden keyword detected: %s", kw)
		}
	}

	// More than one non-empty statement means statement stacking.
	var statements int
	for _, part := range strings.Split(query, ";") {
		if strings.TrimSpace(part) != "" {
			statements++
		}
	}
	if statements > 1 {
		return false, "multiple statements not allowed"
	}

	return true, ""
}
