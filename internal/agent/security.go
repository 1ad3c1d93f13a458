package agent

import (
	"fmt"
	"regexp"

	"ventas-cli/internal/service"
	"ventas-cli/internal/store"
)

// Guard screens SQL written by the model before it reaches the store.
type Guard struct {
	maxRows           int
	dangerousPatterns []*regexp.Regexp
	audit             *AuditLogger
}

// patterns the keyword validator does not catch
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(sqlite_master|sqlite_schema|load_extension|readfile|writefile)\b`),
	regexp.MustCompile(`(?i)\b(vacuum|reindex|detach|replace\s+into)\b`),
}

// NewGuard creates a guard that truncates results to maxRows and reports
// refusals to audit, which may be nil.
func NewGuard(maxRows int, audit *AuditLogger) *Guard {
	return &Guard{maxRows: maxRows, dangerousPatterns: dangerousPatterns, audit: audit}
}

// Check accepts a single read-only SELECT against the sales table.
func (g *Guard) Check(sql string) error {
	if err := service.CheckSelect(sql); err != nil {
		g.audit.LogSecurityViolation(sql, err.Error())
		return err
	}
	for _, p := range g.dangerousPatterns {
		if p.MatchString(sql) {
			err := fmt.Errorf("%s pattern %q is not allowed", service.RejectedMessage, p.String())
			g.audit.LogSecurityViolation(sql, err.Error())
			return err
		}
	}
	return nil
}

// Truncate caps the rows handed back to the model. It reports whether rows were dropped.
func (g *Guard) Truncate(res *store.Result) (*store.Result, bool) {
	if res == nil || g.maxRows <= 0 || len(res.Rows) <= g.maxRows {
		return res, false
	}
	return &store.Result{Columns: res.Columns, Rows: res.Rows[:g.maxRows]}, true
}
