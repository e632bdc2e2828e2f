package query

import (
	"strings"
	"unicode"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
)

// Submission is submitted text split into its target profile and SQL body.
type Submission struct {
	ProfileKey string
	SQL        string
}

// ParseSubmission reads an optional "(profileKey)" prefix on the first line. The key
// may stand alone on that line or be followed by whitespace and SQL. Without one the
// default profile is used and the whole text is the SQL. The SQL is always trimmed.
//
//	(reporting)
//	SELECT 1
//
//	(reporting) SELECT 1
func ParseSubmission(text string) Submission {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	firstLine, rest, multiline := strings.Cut(trimmed, "\n")

	key, tail, ok := profileKeyOf(firstLine)
	if !ok {
		return Submission{ProfileKey: config.DefaultProfileKey, SQL: strings.TrimSpace(text)}
	}
	sql := tail
	if multiline {
		sql += "\n" + rest
	}
	return Submission{ProfileKey: key, SQL: strings.TrimSpace(sql)}
}

// profileKeyOf accepts a leading "(key)" where key is a non-empty word without spaces
// or parentheses, so a parenthesized query is not mistaken for a key. The closing
// parenthesis must end the line or be followed by whitespace; tail is what follows it.
func profileKeyOf(line string) (key, tail string, ok bool) {
	if !strings.HasPrefix(line, "(") {
		return "", "", false
	}
	end := strings.IndexByte(line, ')')
	if end < 2 {
		return "", "", false
	}
	key, tail = line[1:end], line[end+1:]
	if strings.ContainsRune(key, '(') || strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return "", "", false
	}
	if tail != "" && !unicode.IsSpace(rune(tail[0])) {
		return "", "", false
	}
	return key, tail, true
}
