package nlsql

import (
	"strings"
)

// Condition is one WHERE fragment and the values bound to its placeholders.
type Condition struct {
	Fragment string
	Args     []any
}

// Predicate is an ordered conjunction of conditions.
type Predicate struct {
	Conditions []Condition
}

// BuildPredicate turns entities into a filter. Conditions are always added in
// the order city, seller, product, date so arguments line up with placeholders.
func BuildPredicate(e Entities) Predicate {
	var p Predicate
	if e.City != nil {
		p.add("sede = ?", *e.City)
	}
	if e.Seller != nil {
		p.add("LOWER(vendedor) LIKE ?", "%"+strings.ToLower(*e.Seller)+"%")
	}
	if e.Product != nil {
		p.add("LOWER(producto) LIKE ?", "%"+strings.ToLower(*e.Product)+"%")
	}
	switch {
	case e.DateFrom != nil && e.DateTo != nil:
		p.add("date(fecha) BETWEEN ? AND ?", *e.DateFrom, *e.DateTo)
	case e.DateFrom != nil:
		p.add("date(fecha) = ?", *e.DateFrom)
	}
	return p
}

func (p *Predicate) add(fragment string, args ...any) {
	p.Conditions = append(p.Conditions, Condition{Fragment: fragment, Args: args})
}

// Empty reports whether the predicate filters nothing.
func (p Predicate) Empty() bool {
	return len(p.Conditions) == 0
}

// Where renders the clause, or "" when there is nothing to filter.
func (p Predicate) Where() string {
	if p.Empty() {
		return ""
	}
	parts := make([]string, len(p.Conditions))
	for i, c := range p.Conditions {
		parts[i] = c.Fragment
	}
	return "WHERE " + strings.Join(parts, " AND ")
}

// Args returns the bound values in placeholder order.
func (p Predicate) Args() []any {
	args := []any{}
	for _, c := range p.Conditions {
		args = append(args, c.Args...)
	}
	return args
}
