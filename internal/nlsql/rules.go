package nlsql

import (
	"fmt"
	"regexp"
	"strings"
)

// Input is what every rule sees: the normalized question plus everything
// derived from it.
type Input struct {
	Text      string
	Entities  Entities
	Predicate Predicate
	Limit     int
	Table     string

	listingCap  int
	fallbackCap int
}

// Rule pairs a recognizer with the plan it produces. Rules are tried in order
// and the first match wins.
type Rule struct {
	Name  string
	Match func(in *Input) bool
	Build func(in *Input) Plan
}

const (
	revenue  = "SUM(cantidad*precio) AS total_ventas"
	quantity = "SUM(cantidad) AS total_cantidad"
)

var (
	mostSoldProductRe  = regexp.MustCompile(`\bproducto\b.*mas\s+vendid|mas\s+vendid[oa]\s+.*\bproducto\b`)
	leastSoldProductRe = regexp.MustCompile(`\bproducto\b.*menos\s+vendid|menos\s+vendid[oa]\s+.*\bproducto\b`)
	mostSellerRe       = regexp.MustCompile(`vendedor.*mas.*ventas`)
	leastSellerRe      = regexp.MustCompile(`vendedor.*menos.*ventas`)
	topRe              = regexp.MustCompile(`\btop(\d+)?\b`)
	trendRe            = regexp.MustCompile(`\bpor (dia|mes|ano|anio)\b`)
	trendDayRe         = regexp.MustCompile(`\bpor dia\b`)
	trendMonthRe       = regexp.MustCompile(`\bpor mes\b`)
)

func has(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func hasAll(text string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(text, n) {
			return false
		}
	}
	return true
}

func (in *Input) isTop() bool {
	return topRe.MatchString(in.Text) || has(in.Text, "mejores", "ranking", "mas vendidos")
}

func (in *Input) isBottom() bool {
	return has(in.Text, "peores", "menos vendidos", "bottom")
}

func (in *Input) order() string {
	if in.isTop() && !in.isBottom() {
		return "DESC"
	}
	return "ASC"
}

// groupMode prefers an explicitly requested chart, then export, then def.
func (in *Input) groupMode(def Mode) Mode {
	if in.Entities.Chart != "" {
		return Mode(in.Entities.Chart)
	}
	if in.Entities.Export != "" {
		return Mode(in.Entities.Export)
	}
	return def
}

// groupColumn reads "por vendedor", "por sede" or "por producto".
func (in *Input) groupColumn() (string, bool) {
	switch {
	case strings.Contains(in.Text, "por vendedor"):
		return "vendedor", true
	case strings.Contains(in.Text, "por sede"):
		return "sede", true
	case strings.Contains(in.Text, "por producto"):
		return "producto", true
	}
	return "", false
}

// query joins the non-empty clauses into one statement.
func (in *Input) query(clauses ...string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ") + ";"
}

func (in *Input) from() string {
	return "FROM " + in.Table
}

func (in *Input) plan(sql string, mode Mode) Plan {
	return Plan{SQL: sql, Mode: mode, Params: in.Predicate.Args()}
}

func (in *Input) limit() string {
	return fmt.Sprintf("LIMIT %d", in.Limit)
}

func (in *Input) grouped(column, measure, order, limit string, mode Mode) Plan {
	alias := "total_ventas"
	if measure == quantity {
		alias = "total_cantidad"
	}
	sql := in.query(
		"SELECT "+column+", "+measure,
		in.from(), in.Predicate.Where(),
		"GROUP BY "+column,
		"ORDER BY "+alias+" "+order,
		limit,
	)
	return in.plan(sql, mode)
}

func (in *Input) leastSoldProduct() bool {
	return leastSoldProductRe.MatchString(in.Text) || strings.Contains(in.Text, "peor producto")
}

func (in *Input) leastSeller() bool {
	return leastSellerRe.MatchString(in.Text) || strings.Contains(in.Text, "peor vendedor")
}

// trendKey picks the date truncation by priority: day, then month, then year,
// whatever order they appear in.
func (in *Input) trendKey() (key, alias string) {
	switch {
	case trendDayRe.MatchString(in.Text):
		return "date(fecha) AS dia", "dia"
	case trendMonthRe.MatchString(in.Text):
		return "strftime('%Y-%m', date(fecha)) AS mes", "mes"
	default:
		return "strftime('%Y', date(fecha)) AS anio", "anio"
	}
}

// Rules returns the decision list in priority order. Reordering it changes
// which plan a question gets.
func Rules() []Rule {
	return []Rule{
		{
			Name:  "most_sold_product",
			Match: func(in *Input) bool { return mostSoldProductRe.MatchString(in.Text) },
			Build: func(in *Input) Plan {
				return in.grouped("producto", quantity, "DESC", "LIMIT 1", ModeText)
			},
		},
		{
			Name:  "least_sold_product",
			Match: (*Input).leastSoldProduct,
			Build: func(in *Input) Plan {
				return in.grouped("producto", quantity, "ASC", "LIMIT 1", ModeText)
			},
		},
		{
			Name: "top_seller",
			Match: func(in *Input) bool {
				if in.leastSeller() {
					return false
				}
				return mostSellerRe.MatchString(in.Text) || hasAll(in.Text, "quien", "vendedor")
			},
			Build: func(in *Input) Plan {
				return in.grouped("vendedor", revenue, "DESC", "LIMIT 1", ModeText)
			},
		},
		{
			Name:  "bottom_seller",
			Match: (*Input).leastSeller,
			Build: func(in *Input) Plan {
				return in.grouped("vendedor", revenue, "ASC", "LIMIT 1", ModeText)
			},
		},
		{
			Name: "top_sales",
			Match: func(in *Input) bool {
				if has(in.Text, "producto", "vendedor") {
					return false
				}
				return strings.Contains(in.Text, "venta") &&
					(topRe.MatchString(in.Text) || strings.Contains(in.Text, "ranking"))
			},
			Build: func(in *Input) Plan {
				return in.grouped("producto", revenue, "DESC", in.limit(), in.groupMode(ModeTable))
			},
		},
		{
			Name: "product_ranking",
			Match: func(in *Input) bool {
				return strings.Contains(in.Text, "producto") && (in.isTop() || in.isBottom())
			},
			Build: func(in *Input) Plan {
				measure := revenue
				if has(in.Text, "cantidad", "unidades", "vendid") {
					measure = quantity
				}
				return in.grouped("producto", measure, in.order(), in.limit(), in.groupMode(ModeTable))
			},
		},
		{
			Name: "seller_ranking",
			Match: func(in *Input) bool {
				return strings.Contains(in.Text, "vendedor") && (in.isTop() || in.isBottom())
			},
			Build: func(in *Input) Plan {
				measure := revenue
				if has(in.Text, "cantidad", "unidades") {
					measure = quantity
				}
				return in.grouped("vendedor", measure, in.order(), in.limit(), in.groupMode(ModeTable))
			},
		},
		{
			Name: "location_ranking",
			Match: func(in *Input) bool {
				return strings.Contains(in.Text, "por sede") &&
					(topRe.MatchString(in.Text) || has(in.Text, "ranking", "mejores", "peores"))
			},
			Build: func(in *Input) Plan {
				order := "DESC"
				if has(in.Text, "peores", "bottom") {
					order = "ASC"
				}
				return in.grouped("sede", revenue, order, in.limit(), in.groupMode(ModeTable))
			},
		},
		{
			Name: "average_ticket",
			Match: func(in *Input) bool {
				return has(in.Text, "ticket promedio", "promedio por venta") || hasAll(in.Text, "promedio", "venta")
			},
			Build: func(in *Input) Plan {
				sql := in.query("SELECT AVG(cantidad*precio) AS ticket_promedio", in.from(), in.Predicate.Where())
				return in.plan(sql, ModeText)
			},
		},
		{
			Name: "average_price",
			Match: func(in *Input) bool {
				return strings.Contains(in.Text, "promedio de precio") || hasAll(in.Text, "precio", "promedio")
			},
			Build: func(in *Input) Plan {
				sql := in.query("SELECT AVG(precio) AS precio_promedio", in.from(), in.Predicate.Where())
				return in.plan(sql, ModeText)
			},
		},
		{
			Name: "total_sales",
			Match: func(in *Input) bool {
				return has(in.Text, "total de ventas", "ingreso", "facturacion", "ventas totales")
			},
			Build: func(in *Input) Plan {
				if column, ok := in.groupColumn(); ok {
					return in.grouped(column, revenue, "DESC", "", in.groupMode(ModeTable))
				}
				sql := in.query("SELECT "+revenue, in.from(), in.Predicate.Where())
				return in.plan(sql, ModeText)
			},
		},
		{
			Name: "quantity_by_group",
			Match: func(in *Input) bool {
				_, grouped := in.groupColumn()
				return grouped && has(in.Text, "cantidad", "unidades")
			},
			Build: func(in *Input) Plan {
				column, _ := in.groupColumn()
				return in.grouped(column, quantity, "DESC", "", in.groupMode(ModeTable))
			},
		},
		{
			Name:  "share",
			Match: func(in *Input) bool { return has(in.Text, "participacion", "porcentaje") },
			Build: func(in *Input) Plan {
				column, ok := in.groupColumn()
				if !ok {
					column = "producto"
				}
				where := in.Predicate.Where()
				total := in.query("SELECT SUM(cantidad*precio)", in.from(), where)
				total = strings.TrimSuffix(total, ";")
				sql := in.query(
					"SELECT "+column+", "+revenue+",",
					"ROUND(100.0*SUM(cantidad*precio) / ("+total+"), 2) AS pct",
					in.from(), where,
					"GROUP BY "+column,
					"ORDER BY total_ventas DESC",
				)
				args := in.Predicate.Args()
				params := make([]any, 0, 2*len(args))
				params = append(params, args...)
				params = append(params, args...)
				return Plan{SQL: sql, Mode: ModeTable, Params: params}
			},
		},
		{
			Name:  "trend",
			Match: func(in *Input) bool { return trendRe.MatchString(in.Text) },
			Build: func(in *Input) Plan {
				key, alias := in.trendKey()
				mode := ModeLine
				if in.Entities.Chart != "" {
					mode = Mode(in.Entities.Chart)
				}
				sql := in.query(
					"SELECT "+key+", "+revenue,
					in.from(), in.Predicate.Where(),
					"GROUP BY "+alias,
					"ORDER BY "+alias,
				)
				return in.plan(sql, mode)
			},
		},
		{
			Name:  "export",
			Match: func(in *Input) bool { return in.Entities.Export != "" },
			Build: func(in *Input) Plan {
				return in.grouped("vendedor", revenue, "DESC", "", Mode(in.Entities.Export))
			},
		},
		{
			Name: "listing",
			Match: func(in *Input) bool {
				return has(in.Text, "tabla", "muestr", "lista", "ver ventas", "detalle")
			},
			Build: func(in *Input) Plan {
				sql := in.query(
					"SELECT *", in.from(), in.Predicate.Where(),
					"ORDER BY date(fecha) DESC, id DESC",
					fmt.Sprintf("LIMIT %d", in.listingCap),
				)
				return in.plan(sql, ModeTable)
			},
		},
		{
			Name:  "fallback",
			Match: func(*Input) bool { return true },
			Build: func(in *Input) Plan {
				sql := in.query("SELECT *", in.from(), in.Predicate.Where(), fmt.Sprintf("LIMIT %d", in.fallbackCap))
				return in.plan(sql, ModeTable)
			},
		},
	}
}
