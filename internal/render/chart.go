package render

import (
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/store"
)

const (
	chartWidth  = 1024
	chartHeight = 512
)

// Series extracts labels from the first column and values from the second.
func Series(res *store.Result) ([]string, []float64, error) {
	if res.Empty() || len(res.Columns) < 2 {
		return nil, nil, ErrNoData
	}
	labels := make([]string, 0, len(res.Rows))
	values := make([]float64, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, ok := store.ToFloat(row[1])
		if !ok && row[1] != nil {
			return nil, nil, fmt.Errorf("column %s is not numeric", res.Columns[1])
		}
		labels = append(labels, FormatValue(row[0]))
		values = append(values, v)
	}
	return labels, values, nil
}

// Chart draws res as a PNG and returns its path.
func (r *Renderer) Chart(kind nlsql.ChartKind, res *store.Result, title string) (string, error) {
	labels, values, err := Series(res)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = fmt.Sprintf("%s por %s", res.Columns[1], res.Columns[0])
	}

	f, path, err := r.create("grafico_"+string(kind), ".png")
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch kind {
	case nlsql.ChartPie:
		err = pieChart(title, labels, values).Render(chart.PNG, f)
	case nlsql.ChartLine:
		err = lineChart(title, res.Columns, labels, values).Render(chart.PNG, f)
	case nlsql.ChartBar:
		err = barChart(title, labels, values).Render(chart.PNG, f)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedMode, kind)
	}
	if err != nil {
		f.Close()
		r.fs.Remove(path)
		return "", fmt.Errorf("failed to render %s chart: %w", kind, err)
	}
	return path, nil
}

func chartValues(labels []string, values []float64) []chart.Value {
	out := make([]chart.Value, len(values))
	for i := range values {
		out[i] = chart.Value{Label: labels[i], Value: values[i]}
	}
	return out
}

func pieChart(title string, labels []string, values []float64) chart.PieChart {
	return chart.PieChart{
		Title:  title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: chartValues(labels, values),
	}
}

func barChart(title string, labels []string, values []float64) chart.BarChart {
	return chart.BarChart{
		Title:    title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: chartValues(labels, values),
	}
}

func lineChart(title string, columns, labels []string, values []float64) chart.Chart {
	xs := make([]float64, len(values))
	ticks := make([]chart.Tick, len(values))
	for i := range values {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: labels[i]}
	}
	if len(values) == 1 {
		// a single point has no x range to scale
		xs = append(xs, 1)
		values = append(values, values[0])
	}
	return chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: columns[0], Ticks: ticks},
		YAxis:  chart.YAxis{Name: columns[1]},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    columns[1],
				XValues: xs,
				YValues: values,
			},
		},
	}
}
