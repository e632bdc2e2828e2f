// Package classifier decides whether a SQL statement produces rows.
package classifier

import (
	"fmt"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
)

// StatementType represents the category of a SQL statement.
type StatementType int

// Statement types.
const (
	StatementTypeQuery       StatementType = iota // SELECT, SHOW, DESCRIBE, EXPLAIN, WITH
	StatementTypeDML                              // INSERT, UPDATE, DELETE
	StatementTypeDDL                              // CREATE, DROP, ALTER, TRUNCATE
	StatementTypeTransaction                      // BEGIN, COMMIT, ROLLBACK
	StatementTypeOther                            // SET, USE, unknown
)

func (t StatementType) String() string {
	switch t {
	case StatementTypeQuery:
		return "query"
	case StatementTypeDML:
		return "dml"
	case StatementTypeDDL:
		return "ddl"
	case StatementTypeTransaction:
		return "transaction"
	default:
		return "other"
	}
}

// Result contains the classification of a SQL statement.
type Result struct {
	Type        StatementType
	ReturnsRows bool
}

// queryPrefixes start statements that return a row set.
var queryPrefixes = []string{
	"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN",
	"VALUES", "PRAGMA", "TABLE", "FROM", "CALL", "SUMMARIZE",
	"PIVOT", "UNPIVOT",
}

var dmlPrefixes = []string{"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "REPLACE", "COPY"}

var ddlPrefixes = []string{"CREATE", "DROP", "ALTER", "TRUNCATE", "COMMENT", "GRANT", "REVOKE"}

var transactionPrefixes = []string{"BEGIN", "START TRANSACTION", "COMMIT", "ROLLBACK", "END", "SAVEPOINT"}

// Classifier provides SQL statement classification functionality.
type Classifier struct{}

// NewClassifier creates a new SQL classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify analyzes a SQL statement. The MySQL-dialect parser is tried first; text
// it cannot parse falls back to keyword prefixes.
func (c *Classifier) Classify(sql string) Result {
	trimmed := strings.TrimSpace(sql)
	if stmt, err := parse(trimmed); err == nil {
		if result, ok := classifyAST(stmt); ok {
			return result
		}
	}
	return c.classifyPrefix(strings.ToUpper(stripLeadingComments(trimmed)))
}

// parse runs the parser and turns its panics into errors. Some statements the
// parser accepts, SHOW TABLES among them, crash it while converting the AST.
func parse(sql string) (stmt sqlparser.Statement, err error) {
	defer func() {
		if r := recover(); r != nil {
			stmt, err = nil, fmt.Errorf("parse %q: %v", sql, r)
		}
	}()
	return sqlparser.Parse(sql)
}

func classifyAST(stmt sqlparser.Statement) (Result, bool) {
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect, *sqlparser.Show, *sqlparser.OtherRead:
		return Result{Type: StatementTypeQuery, ReturnsRows: true}, true
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
		return Result{Type: StatementTypeDML}, true
	case *sqlparser.DDL:
		return Result{Type: StatementTypeDDL}, true
	case *sqlparser.Set:
		return Result{Type: StatementTypeOther}, true
	default:
		return Result{}, false
	}
}

func (c *Classifier) classifyPrefix(upperSQL string) Result {
	switch {
	case hasAnyPrefix(upperSQL, queryPrefixes):
		return Result{Type: StatementTypeQuery, ReturnsRows: true}
	case hasAnyPrefix(upperSQL, dmlPrefixes):
		// INSERT ... RETURNING and friends hand rows back.
		return Result{Type: StatementTypeDML, ReturnsRows: containsWord(upperSQL, "RETURNING")}
	case hasAnyPrefix(upperSQL, ddlPrefixes):
		return Result{Type: StatementTypeDDL}
	case hasAnyPrefix(upperSQL, transactionPrefixes):
		return Result{Type: StatementTypeTransaction}
	default:
		return Result{Type: StatementTypeOther}
	}
}

// IsExplain reports whether the response should be plain text rather than a table.
// It matches the EXPLAIN keyword followed by a space anywhere in the text,
// case-insensitively.
func IsExplain(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), config.ExplainPredicate)
}

// DefaultClassifier is the default SQL classifier instance.
var DefaultClassifier = NewClassifier()

// Classify is a convenience function using the default classifier.
func Classify(sql string) Result {
	return DefaultClassifier.Classify(sql)
}

// ReturnsRows is a convenience function to check if SQL produces a row set.
func ReturnsRows(sql string) bool {
	return DefaultClassifier.Classify(sql).ReturnsRows
}

func hasAnyPrefix(upperSQL string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if !strings.HasPrefix(upperSQL, prefix) {
			continue
		}
		// Require a word boundary so DESCRIPTION_TABLE does not match DESC.
		if len(upperSQL) == len(prefix) || !isWordChar(upperSQL[len(prefix)]) {
			return true
		}
	}
	return false
}

func containsWord(upperSQL, word string) bool {
	for _, field := range strings.FieldsFunc(upperSQL, func(r rune) bool {
		return r > 127 || !isWordChar(byte(r))
	}) {
		if field == word {
			return true
		}
	}
	return false
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// stripLeadingComments removes leading "--" line comments, "/* */" block comments and
// opening parentheses so "(SELECT 1) UNION ..." classifies as a query.
func stripLeadingComments(sql string) string {
	for {
		sql = strings.TrimLeft(sql, " \t\r\n(")
		switch {
		case strings.HasPrefix(sql, "--"):
			idx := strings.IndexByte(sql, '\n')
			if idx < 0 {
				return ""
			}
			sql = sql[idx+1:]
		case strings.HasPrefix(sql, "/*"):
			idx := strings.Index(sql, "*/")
			if idx < 0 {
				return ""
			}
			sql = sql[idx+2:]
		default:
			return sql
		}
	}
}
