package nlsql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entities are the facts recognised in a normalized question. Every field is
// optional: nil pointers and empty kinds mean the entity was not found.
type Entities struct {
	City     *string    `json:"city,omitempty"`
	Limit    *int       `json:"limit,omitempty"`
	DateFrom *string    `json:"date_from,omitempty"`
	DateTo   *string    `json:"date_to,omitempty"`
	Product  *string    `json:"product,omitempty"`
	Seller   *string    `json:"seller,omitempty"`
	Chart    ChartKind  `json:"chart,omitempty"`
	Export   ExportKind `json:"export,omitempty"`
}

// ExtractEntities runs every extractor over normalized text.
func ExtractEntities(text string, today time.Time) Entities {
	var e Entities
	if city, ok := ExtractCity(text); ok {
		e.City = &city
	}
	if n, ok := ExtractLimit(text); ok {
		e.Limit = &n
	}
	if from, to, ok := ExtractDates(text, today); ok {
		e.DateFrom, e.DateTo = &from, &to
	}
	if product, ok := ExtractProduct(text); ok {
		e.Product = &product
	}
	if seller, ok := ExtractSeller(text); ok {
		e.Seller = &seller
	}
	if chart, ok := ExtractChart(text); ok {
		e.Chart = chart
	}
	if export, ok := ExtractExport(text); ok {
		e.Export = export
	}
	return e
}

type cityKey struct {
	key     string
	display string
	re      *regexp.Regexp
}

func newCityKey(key, display string) cityKey {
	return cityKey{key: key, display: display, re: regexp.MustCompile(`\b` + key + `\b`)}
}

// cities is checked in order; the first hit wins.
var cities = []cityKey{
	newCityKey("medellin", "Medellín"),
	newCityKey("bogota", "Bogotá"),
	newCityKey("cali", "Cali"),
	newCityKey("barranquilla", "Barranquilla"),
}

// Cities returns the display names of the known locations in match order.
func Cities() []string {
	out := make([]string, 0, len(cities))
	for _, c := range cities {
		out = append(out, c.display)
	}
	return out
}

// ExtractCity returns the display name of the first known city in text.
func ExtractCity(text string) (string, bool) {
	for _, c := range cities {
		if c.re.MatchString(text) {
			return c.display, true
		}
	}
	return "", false
}

var (
	topLimitRe    = regexp.MustCompile(`\btop\s*(\d+)\b`)
	bottomLimitRe = regexp.MustCompile(`\b(?:bottom|peores?|menos)\s*(\d+)\b`)
)

// ExtractLimit returns the N of "top N" or, failing that, of "peores N".
func ExtractLimit(text string) (int, bool) {
	for _, re := range []*regexp.Regexp{topLimitRe, bottomLimitRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

const isoDate = "2006-01-02"

var (
	betweenRe   = regexp.MustCompile(`entre\s*(\d{4}-\d{2}-\d{2})\s*y\s*(\d{4}-\d{2}-\d{2})`)
	todayRe     = regexp.MustCompile(`\bhoy\b`)
	yesterdayRe = regexp.MustCompile(`\bayer\b`)
	lastMonthRe = regexp.MustCompile(`\bultimo mes\b`)
	lastWeekRe  = regexp.MustCompile(`\bultima semana\b|\bultimos 7 dias\b`)
	// The trailing class keeps "en 2024-03" away from the whole-year rule.
	yearRe      = regexp.MustCompile(`\b(?:en|ano|anio)\s*(\d{4})(?:[^\d-]|$)`)
	yearMonthRe = regexp.MustCompile(`\ben\s*(\d{4})-(\d{2})\b`)
	monthNameRe = regexp.MustCompile(`\ben\s*(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)\s*(?:del?\s+)?(\d{4})`)
)

var monthNumbers = map[string]string{
	"enero": "01", "febrero": "02", "marzo": "03", "abril": "04",
	"mayo": "05", "junio": "06", "julio": "07", "agosto": "08",
	"septiembre": "09", "setiembre": "09", "octubre": "10",
	"noviembre": "11", "diciembre": "12",
}

// ExtractDates resolves an inclusive ISO date range. Month ranges always end on
// day 31. The bounds are compared as plain strings against date(fecha); passing
// them through date() would roll 2024-02-31 over to 2024-03-02.
func ExtractDates(text string, today time.Time) (string, string, bool) {
	if m := betweenRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2], true
	}
	switch {
	case todayRe.MatchString(text):
		d := today.Format(isoDate)
		return d, d, true
	case yesterdayRe.MatchString(text):
		d := today.AddDate(0, 0, -1).Format(isoDate)
		return d, d, true
	case lastMonthRe.MatchString(text):
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		last := firstOfMonth.AddDate(0, 0, -1)
		first := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, today.Location())
		return first.Format(isoDate), last.Format(isoDate), true
	case lastWeekRe.MatchString(text):
		return today.AddDate(0, 0, -7).Format(isoDate), today.Format(isoDate), true
	}
	if m := yearRe.FindStringSubmatch(text); m != nil {
		return m[1] + "-01-01", m[1] + "-12-31", true
	}
	if m := yearMonthRe.FindStringSubmatch(text); m != nil {
		return monthRange(m[1], m[2])
	}
	if m := monthNameRe.FindStringSubmatch(text); m != nil {
		return monthRange(m[2], monthNumbers[m[1]])
	}
	return "", "", false
}

func monthRange(year, month string) (string, string, bool) {
	return fmt.Sprintf("%s-%s-01", year, month), fmt.Sprintf("%s-%s-31", year, month), true
}

var (
	productRe     = regexp.MustCompile(`\b(?:del|de|por)\s+producto\s+([a-z0-9"'\-\s]+)`)
	bareProductRe = regexp.MustCompile(`\bproducto\s+([a-z0-9"'\-\s]+)`)
	sellerRe      = regexp.MustCompile(`\b(?:del|de|por)\s+vendedora?\s+([a-z\s]+)`)
	bareSellerRe  = regexp.MustCompile(`\bvendedora?\s+([a-z\s]+)`)
)

// stopWords mark a capture that landed on a ranking phrase instead of a name,
// as in "producto mas vendido".
var stopWords = map[string]bool{
	"mas": true, "mejor": true, "mejores": true,
	"vendido": true, "vendida": true, "vendidos": true, "vendidas": true,
	"top": true, "ranking": true, "menos": true, "peor": true, "peores": true,
}

// boundaryWords end a name capture.
var boundaryWords = map[string]bool{
	"en": true, "de": true, "por": true, "para": true, "con": true, "que": true,
}

// ExtractProduct returns the product name fragment following "producto".
func ExtractProduct(text string) (string, bool) {
	return extractFragment(text, productRe, bareProductRe)
}

// ExtractSeller returns the seller name fragment following "vendedor".
func ExtractSeller(text string) (string, bool) {
	return extractFragment(text, sellerRe, bareSellerRe)
}

func extractFragment(text string, anchored, bare *regexp.Regexp) (string, bool) {
	m := anchored.FindStringSubmatch(text)
	if m == nil {
		m = bare.FindStringSubmatch(text)
	}
	if m == nil {
		return "", false
	}
	words := strings.Fields(strings.Trim(m[1], `"' `))
	if len(words) == 0 || stopWords[words[0]] {
		return "", false
	}
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if boundaryWords[w] {
			break
		}
		kept = append(kept, w)
	}
	fragment := strings.Trim(strings.Join(kept, " "), `"' `)
	return fragment, fragment != ""
}

var (
	pieRe  = regexp.MustCompile(`\b(?:pastel|torta|pie)\b`)
	lineRe = regexp.MustCompile(`\b(?:lineas?|line)\b`)
	barRe  = regexp.MustCompile(`\b(?:barras?|bar|graficos?|graficas?)\b`)
)

// ExtractChart returns the requested chart kind, checking pie, line and bar in that order.
func ExtractChart(text string) (ChartKind, bool) {
	switch {
	case pieRe.MatchString(text):
		return ChartPie, true
	case lineRe.MatchString(text):
		return ChartLine, true
	case barRe.MatchString(text):
		return ChartBar, true
	}
	return "", false
}

var (
	excelRe = regexp.MustCompile(`\b(?:excel|xlsx)\b`)
	saveRe  = regexp.MustCompile(`\b(?:csv|guarda|exporta|descarga|archivo)`)
)

// ExtractExport returns the requested file format. A save request without a
// format means csv.
func ExtractExport(text string) (ExportKind, bool) {
	if excelRe.MatchString(text) {
		return ExportExcel, true
	}
	if saveRe.MatchString(text) {
		return ExportCSV, true
	}
	return "", false
}
