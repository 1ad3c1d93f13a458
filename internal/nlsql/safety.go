package nlsql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeQuery is returned for SQL that must not be executed.
var ErrUnsafeQuery = errors.New("unsafe query, execution refused")

var (
	forbiddenRe = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|attach|pragma)\b`)
	fromRe      = regexp.MustCompile(`(?i)\bfrom\b`)
	// a statement separator followed by anything but whitespace
	multiStatementRe = regexp.MustCompile(`;\s*\S`)
	commentRe        = regexp.MustCompile(`--|/\*`)
)

// Validate checks sql against the default table.
func Validate(sql string) error {
	return ValidateFor(sql, DefaultTable)
}

// ValidateFor accepts only a single statement that looks like a read from
// table. It is a textual check, not a parser.
func ValidateFor(sql, table string) error {
	if m := forbiddenRe.FindString(sql); m != "" {
		return fmt.Errorf("%w: contains %q", ErrUnsafeQuery, strings.ToLower(m))
	}
	if multiStatementRe.MatchString(sql) {
		return fmt.Errorf("%w: multiple statements", ErrUnsafeQuery)
	}
	if commentRe.MatchString(sql) {
		return fmt.Errorf("%w: comments are not allowed", ErrUnsafeQuery)
	}
	if !fromRe.MatchString(sql) {
		return fmt.Errorf("%w: missing from clause", ErrUnsafeQuery)
	}
	if !strings.Contains(strings.ToLower(sql), strings.ToLower(table)) {
		return fmt.Errorf("%w: table %s not referenced", ErrUnsafeQuery, table)
	}
	return nil
}

// IsSafe reports whether Validate accepts sql.
func IsSafe(sql string) bool {
	return Validate(sql) == nil
}
