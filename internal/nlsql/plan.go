package nlsql

import "time"

// Mode tells the caller how a plan's rows should be presented.
type Mode string

const (
	ModeTable Mode = "table"
	ModeBar   Mode = "bar"
	ModeLine  Mode = "line"
	ModePie   Mode = "pie"
	ModeCSV   Mode = "csv"
	ModeExcel Mode = "excel"
	ModeText  Mode = "text"
)

// IsChart reports whether m renders as an image.
func (m Mode) IsChart() bool {
	return m == ModeBar || m == ModeLine || m == ModePie
}

// IsExport reports whether m writes a file.
func (m Mode) IsExport() bool {
	return m == ModeCSV || m == ModeExcel
}

// ChartKind is a requested chart type. The zero value means none was requested.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
	ChartPie  ChartKind = "pie"
)

// ExportKind is a requested file format. The zero value means none was requested.
type ExportKind string

const (
	ExportCSV   ExportKind = "csv"
	ExportExcel ExportKind = "excel"
)

// Plan is the compiled form of a question.
type Plan struct {
	SQL    string `json:"sql"`
	Mode   Mode   `json:"mode"`
	Params []any  `json:"params"`
	// Intent is the name of the rule that produced the plan.
	Intent string `json:"intent"`
}

// Columns is the closed set of columns a plan may reference.
var Columns = []string{"id", "vendedor", "sede", "producto", "cantidad", "precio", "fecha", "total"}

// Options configures a Compiler. Zero fields fall back to the defaults below.
type Options struct {
	Table        string
	DefaultLimit int
	ListingCap   int
	FallbackCap  int
	EmptyCap     int
	Now          func() time.Time
}

const (
	DefaultTable       = "ventas"
	DefaultLimit       = 5
	DefaultListingCap  = 200
	DefaultFallbackCap = 50
	DefaultEmptyCap    = 20
)

func (o Options) withDefaults() Options {
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.ListingCap <= 0 {
		o.ListingCap = DefaultListingCap
	}
	if o.FallbackCap <= 0 {
		o.FallbackCap = DefaultFallbackCap
	}
	if o.EmptyCap <= 0 {
		o.EmptyCap = DefaultEmptyCap
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
