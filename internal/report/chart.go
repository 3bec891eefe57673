package report

import (
	"errors"
	"fmt"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
)

// WriteDowntimeChart renders monthly downtime (minutes) as a PNG bar chart,
// oldest month on the left.
func WriteDowntimeChart(path string, cost CostReport) error {
	if len(cost.Months) == 0 {
		return errors.New("no closed outages to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(cost.Months))
	maxMinutes := 0.0
	for i := len(cost.Months) - 1; i >= 0; i-- {
		month := cost.Months[i]
		minutes := float64(month.DowntimeSeconds) / 60
		if minutes > maxMinutes {
			maxMinutes = minutes
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%04d-%02d", month.Year, int(month.Month)),
			Value: minutes,
		})
	}
	if maxMinutes <= 0 {
		maxMinutes = 1
	}

	width := 200 + 80*len(bars)
	if width < 640 {
		width = 640
	}

	graph := chart.BarChart{
		Title:    "Monthly downtime (minutes)",
		Width:    width,
		Height:   480,
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxMinutes * 1.1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return file.Close()
}
