package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSubmission(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Submission
	}{
		{"Default", "SELECT 1", Submission{ProfileKey: "default", SQL: "SELECT 1"}},
		{"DefaultTrimmed", "  SELECT 1\n ", Submission{ProfileKey: "default", SQL: "SELECT 1"}},
		{"Override", "(reporting)\nSELECT 1", Submission{ProfileKey: "reporting", SQL: "SELECT 1"}},
		{"OverrideMultiline", " (pg) \nSELECT a\nFROM t\n", Submission{ProfileKey: "pg", SQL: "SELECT a\nFROM t"}},
		{"OverrideOnly", "(reporting)", Submission{ProfileKey: "reporting", SQL: ""}},
		{"FunctionCall", "SELECT count(*) FROM t", Submission{ProfileKey: "default", SQL: "SELECT count(*) FROM t"}},
		{"ParenthesizedQuery", "(SELECT 1)\nUNION (SELECT 2)", Submission{ProfileKey: "default", SQL: "(SELECT 1)\nUNION (SELECT 2)"}},
		{"ParenOnSecondLine", "SELECT 1\n(reporting)", Submission{ProfileKey: "default", SQL: "SELECT 1\n(reporting)"}},
		{"EmptyKey", "()\nSELECT 1", Submission{ProfileKey: "default", SQL: "()\nSELECT 1"}},
		{"OverrideInline", "(reporting) SELECT 1", Submission{ProfileKey: "reporting", SQL: "SELECT 1"}},
		{"OverrideInlineTab", "(pg)\tSELECT a\nFROM t", Submission{ProfileKey: "pg", SQL: "SELECT a\nFROM t"}},
		{"OverrideCRLF", "(reporting)\r\nSELECT 1", Submission{ProfileKey: "reporting", SQL: "SELECT 1"}},
		{"KeyGluedToSQL", "(x)+1", Submission{ProfileKey: "default", SQL: "(x)+1"}},
		{"InlineParenthesizedQuery", "(SELECT 1) UNION (SELECT 2)", Submission{ProfileKey: "default", SQL: "(SELECT 1) UNION (SELECT 2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, ParseSubmission(tt.text)); diff != "" {
				t.Errorf("ParseSubmission(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}
