package subscription

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateQueryAllowsEveryCatalogName(t *testing.T) {
	for _, name := range AllowedNames() {
		doc := fmt.Sprintf("subscription { %s { x } }", name)
		got, err := ValidateQuery(doc)
		if err != nil {
			t.Errorf("ValidateQuery(%q) returned error: %v", doc, err)
			continue
		}
		if got != name {
			t.Errorf("ValidateQuery(%q) = %q, expected %q", doc, got, name)
		}
	}
}

func TestValidateQueryRejectsUnknownName(t *testing.T) {
	_, err := ValidateQuery("subscription { secretStream { x } }")
	if err == nil {
		t.Fatal("Expected error for unknown subscription name")
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("Expected 'not allowed' in error, got: %v", err)
	}
	// The error must list the allowed set so callers can self-correct.
	for _, name := range AllowedNames() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Expected allowed name %q in error, got: %v", name, err)
		}
	}
}

func TestValidateQueryRejectsForbiddenKeywords(t *testing.T) {
	docs := []string{
		"mutation { reboot }",
		"query { info { os } }",
		"MUTATION { reboot }",
		"Query { info }",
		// Smuggled inside an otherwise valid subscription body.
		"subscription { arrayStatus { x } } mutation { reboot }",
		"subscription { arrayStatus { x } }\nquery { info }",
	}
	for _, doc := range docs {
		if _, err := ValidateQuery(doc); err == nil {
			t.Errorf("ValidateQuery(%q) should have been rejected", doc)
		} else if !strings.Contains(err.Error(), "must be a subscription") {
			t.Errorf("ValidateQuery(%q) wrong error: %v", doc, err)
		}
	}
}

func TestValidateQueryKeywordSubstringsPass(t *testing.T) {
	// Identifiers merely containing the keywords are not rejected; the
	// document still fails on the allow-list, not on the keyword check.
	doc := "subscription { mutationEvents { queryStats } }"
	_, err := ValidateQuery(doc)
	if err == nil {
		t.Fatal("Expected allow-list rejection")
	}
	if strings.Contains(err.Error(), "must be a subscription") {
		t.Errorf("Substring identifiers must not trip the keyword check, got: %v", err)
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("Expected allow-list error, got: %v", err)
	}
}

func TestValidateQueryShape(t *testing.T) {
	bad := []string{
		"",
		"{ arrayStatus { x } }",
		"arrayStatus { x }",
		"subscription",
		"subscriptions { arrayStatus { x } }",
	}
	for _, doc := range bad {
		if _, err := ValidateQuery(doc); err == nil {
			t.Errorf("ValidateQuery(%q) should have failed the shape check", doc)
		}
	}

	// Leading whitespace, operation names, variables, and multi-line
	// bodies are all legal.
	good := "\n\t subscription LogFile($path: String!) {\n  logFile(path: $path) {\n    content\n  }\n}"
	name, err := ValidateQuery(good)
	if err != nil {
		t.Fatalf("ValidateQuery on multi-line document failed: %v", err)
	}
	if name != "logFile" {
		t.Errorf("Extracted name = %q, expected logFile", name)
	}

	// Case-insensitive subscription keyword.
	name, err = ValidateQuery("SUBSCRIPTION { arrayStatus { state } }")
	if err != nil {
		t.Fatalf("Uppercase keyword rejected: %v", err)
	}
	if name != "arrayStatus" {
		t.Errorf("Extracted name = %q, expected arrayStatus", name)
	}
}
