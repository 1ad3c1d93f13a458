// Package util holds terminal helpers shared by the REPL and the commands.
package util

import (
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	// highlightColor marks the words of a question that became filters (yellow background with black text)
	highlightColor = color.New(color.BgYellow, color.FgBlack)
	keywordColor   = color.New(color.FgCyan, color.Bold)
	paramColor     = color.New(color.FgYellow)

	// colorEnabled determines if color output is enabled
	colorEnabled = isatty.IsTerminal(os.Stdout.Fd())

	sqlKeywordRe = regexp.MustCompile(`(?i)\b(SELECT|FROM|WHERE|AND|GROUP BY|ORDER BY|LIMIT|AS|DESC|ASC|BETWEEN|LIKE|SUM|AVG|COUNT|ROUND|LOWER|date|strftime)\b`)
)

// DisableColor disables color output
func DisableColor() {
	colorEnabled = false
	color.NoColor = true
}

// EnableColor enables color output when stdout is a terminal
func EnableColor() {
	colorEnabled = isatty.IsTerminal(os.Stdout.Fd())
	color.NoColor = !colorEnabled
}

// IsColorEnabled returns whether color output is currently enabled
func IsColorEnabled() bool {
	return colorEnabled
}

// HighlightSQL colors keywords and placeholders of a compiled statement.
func HighlightSQL(sql string) string {
	if !colorEnabled || sql == "" {
		return sql
	}
	out := sqlKeywordRe.ReplaceAllStringFunc(sql, func(kw string) string {
		return keywordColor.Sprint(kw)
	})
	return strings.ReplaceAll(out, "?", paramColor.Sprint("?"))
}

// HighlightTerms highlights every case-insensitive occurrence of terms in text.
// Empty terms are ignored.
func HighlightTerms(text string, terms ...string) string {
	if !colorEnabled || text == "" {
		return text
	}

	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return text
	}

	re, err := regexp.Compile("(?i)" + strings.Join(quoted, "|"))
	if err != nil {
		return text
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var result strings.Builder
	lastEnd := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		result.WriteString(text[lastEnd:start])
		result.WriteString(highlightColor.Sprint(text[start:end]))
		lastEnd = end
	}
	result.WriteString(text[lastEnd:])

	return result.String()
}
