package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/connection"
)

// Render converts a cell value to text. nil renders as an empty string. In table
// responses tab and newline characters become a single space so they cannot break
// the row and column delimiters; text responses are passed through.
func Render(tableResponse bool, value any) string {
	if value == nil {
		return config.EmptyColumnValue
	}
	s := stringify(value)
	if !tableResponse {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == config.Tab || r == config.Newline {
			return config.Space
		}
		return r
	}, s)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// WriteTable renders a cursor as a header line followed by one line per row, columns
// separated by tabs and every line newline-terminated. Table responses start with the
// table marker line. The row count is whatever the cursor yields; the cap is applied
// by the statement.
func WriteTable(tableResponse bool, cursor connection.Cursor) (string, error) {
	var b strings.Builder
	if tableResponse {
		b.WriteString(config.TableMagicTag)
		b.WriteByte(config.Newline)
	}

	for i, column := range cursor.Columns() {
		if i > 0 {
			b.WriteByte(config.Tab)
		}
		b.WriteString(Render(tableResponse, column))
	}
	b.WriteByte(config.Newline)

	for cursor.Next() {
		for i, value := range cursor.Values() {
			if i > 0 {
				b.WriteByte(config.Tab)
			}
			b.WriteString(Render(tableResponse, value))
		}
		b.WriteByte(config.Newline)
	}
	if err := cursor.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// UpdateCountMessage renders the result of a statement that produced no rows.
func UpdateCountMessage(count int64) string {
	return config.UpdateCountHeader + string(config.Newline) + strconv.FormatInt(count, 10) + string(config.Newline)
}

// SplitTable parses a table payload back into its header and rows. ok is false when
// payload does not start with the table marker line.
func SplitTable(payload string) (header []string, rows [][]string, ok bool) {
	marker := config.TableMagicTag + string(config.Newline)
	if !strings.HasPrefix(payload, marker) {
		return nil, nil, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(payload, marker), string(config.Newline))
	lines := strings.Split(body, string(config.Newline))

	header = strings.Split(lines[0], string(config.Tab))
	rows = make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, strings.Split(line, string(config.Tab)))
	}
	return header, rows, true
}
