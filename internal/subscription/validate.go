package subscription

import (
	"fmt"
	"regexp"
	"strings"
)

// The validator is the only defense against arbitrary GraphQL execution over
// the subscription transport; it must run before any network I/O.
var (
	// forbiddenKeywordRe matches the standalone keywords "mutation" or
	// "query" anywhere in the document (word-boundary, case-insensitive).
	// Identifiers that merely contain those words (e.g. "queryStats") do
	// not match.
	forbiddenKeywordRe = regexp.MustCompile(`(?i)\b(mutation|query)\b`)

	// subscriptionShapeRe requires the document to have the shape
	// "subscription [Name(...)] { rootField ... }" and captures the root
	// field identifier. Leading whitespace and multi-line bodies are
	// allowed.
	subscriptionShapeRe = regexp.MustCompile(`(?is)^\s*subscription\b[^{]*\{\s*([A-Za-z_][A-Za-z0-9_]*)`)
)

// ValidateQuery checks that document is a well-formed, allow-listed
// subscription and returns its root field name.
func ValidateQuery(document string) (string, error) {
	if forbiddenKeywordRe.MatchString(document) {
		return "", fmt.Errorf("query must be a subscription: mutation and query operations are not permitted on the subscription channel")
	}

	m := subscriptionShapeRe.FindStringSubmatch(document)
	if m == nil {
		return "", fmt.Errorf("query must start with 'subscription' followed by a selection set")
	}

	name := m[1]
	if _, ok := CatalogEntry(name); !ok {
		return "", fmt.Errorf("subscription %q is not allowed; allowed subscriptions: %s",
			name, strings.Join(AllowedNames(), ", "))
	}
	return name, nil
}
