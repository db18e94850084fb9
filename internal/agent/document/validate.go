package document

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// forbiddenOperations are mutating MongoDB operations rejected whether they
// appear as a JSON key/value token or as a method-style call.
var forbiddenOperations = []string{
	"insert", "insertone", "insertmany",
	"update", "updateone", "updatemany",
	"delete", "deleteone", "deletemany",
	"drop", "dropcollection", "dropdatabase",
	"create", "createcollection", "createindex",
	"remove", "save", "replace", "replaceone",
	"findoneandupdate", "findoneandreplace", "findoneanddelete",
	"bulkwrite", "rename",
}

// allowedOperations is the closed set of read operations the executor
// understands.
var allowedOperations = map[string]bool{
	"find":      true,
	"aggregate": true,
	"count":     true,
	"distinct":  true,
}

type forbiddenOpPatterns struct {
	token  *regexp.Regexp
	method *regexp.Regexp
}

var forbiddenOpRes = func() map[string]forbiddenOpPatterns {
	res := make(map[string]forbiddenOpPatterns, len(forbiddenOperations))
	for _, op := range forbiddenOperations {
		res[op] = forbiddenOpPatterns{
			token:  regexp.MustCompile(`["']?` + op + `["']?\s*[:(]`),
			method: regexp.MustCompile(`\.` + op + `\s*\(`),
		}
	}
	return res
}()

// ValidateReadOnly checks that the generated MongoDB query is read-only.
// Text that parses as JSON must declare an allowed operation; non-JSON text
// is not auto-rejected (the executor attempts structural extraction later)
// but still has to pass the textual denylist. Pure function of the text.
func (a *Agent) ValidateReadOnly(query string) (bool, string) {
	queryLower := strings.ToLower(query)

	for _, op := range forbiddenOperations {
		patterns := forbiddenOpRes[op]
		if patterns.token.MatchString(queryLower) {
			return false, fmt.Sprintf("forbidden operation detected: %s", op)
		}
		if patterns.method.MatchString(queryLower) {
			return false, fmt.Sprintf("forbidden method detected: %s", op)
		}
	}

	var queryJSON map[string]interface{}
	if err := json.Unmarshal([]byte(query), &queryJSON); err == nil {
		operation, _ := queryJSON["operation"].(string)
		if !allowedOperations[strings.ToLower(operation)] {
			return false, "only find, aggregate, count, and distinct operations are allowed"
		}
	}

	return true, ""
}
