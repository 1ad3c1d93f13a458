// Package nlsql compiles Spanish questions about the ventas table into
// parameterized, read-only SQL.
package nlsql

import (
	"fmt"
	"strings"
)

// Compiler turns questions into plans. It holds no mutable state and is safe
// for concurrent use.
type Compiler struct {
	opts  Options
	rules []Rule
}

// New creates a compiler with the given options.
func New(opts Options) *Compiler {
	return &Compiler{
		opts:  opts.withDefaults(),
		rules: Rules(),
	}
}

// Options returns the effective options.
func (c *Compiler) Options() Options {
	return c.opts
}

// Extract normalizes text and runs the entity extractors over it.
func (c *Compiler) Extract(text string) Entities {
	return ExtractEntities(Normalize(text), c.opts.Now())
}

// Compile returns the plan of the first rule matching text.
func (c *Compiler) Compile(text string) Plan {
	if strings.TrimSpace(text) == "" {
		return Plan{
			SQL:    fmt.Sprintf("SELECT * FROM %s LIMIT %d;", c.opts.Table, c.opts.EmptyCap),
			Mode:   ModeTable,
			Params: []any{},
			Intent: "empty",
		}
	}

	in := c.input(text)
	for _, rule := range c.rules {
		if rule.Match(in) {
			plan := rule.Build(in)
			plan.Intent = rule.Name
			return plan
		}
	}
	// unreachable: the last rule always matches
	return Plan{}
}

// CompileChecked compiles text and runs the result through the safety validator.
func (c *Compiler) CompileChecked(text string) (Plan, error) {
	plan := c.Compile(text)
	if err := ValidateFor(plan.SQL, c.opts.Table); err != nil {
		return plan, err
	}
	return plan, nil
}

// Validate checks sql against the compiler's table.
func (c *Compiler) Validate(sql string) error {
	return ValidateFor(sql, c.opts.Table)
}

func (c *Compiler) input(text string) *Input {
	normalized := Normalize(strings.TrimSpace(text))
	entities := ExtractEntities(normalized, c.opts.Now())
	limit := c.opts.DefaultLimit
	if entities.Limit != nil {
		limit = *entities.Limit
	}
	return &Input{
		Text:        normalized,
		Entities:    entities,
		Predicate:   BuildPredicate(entities),
		Limit:       limit,
		Table:       c.opts.Table,
		listingCap:  c.opts.ListingCap,
		fallbackCap: c.opts.FallbackCap,
	}
}
