// Package charts renders statistics summaries as PNG line and bar
// charts for the export endpoints.
package charts

import (
	"fmt"

	"github.com/vicanso/go-charts/v2"

	"tradebook/internal/core"
)

// RenderEquityCurve draws the account equity over time as a line chart.
func RenderEquityCurve(summary core.Summary) ([]byte, error) {
	points := summary.EquityCurve
	if len(points) == 0 {
		return nil, fmt.Errorf("no equity points to render")
	}

	xLabels := make([]string, 0, len(points))
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if len(points) <= 60 {
			xLabels = append(xLabels, p.Date.Format("Jan 02"))
		} else {
			xLabels = append(xLabels, p.Date.Format("Jan '06"))
		}
		values = append(values, p.Equity)
	}

	yMin, yMax := paddedRange(values)
	title := fmt.Sprintf("Equity Curve\nP/L: %.2f | Win rate: %.1f%% | ROI: %.2f%%",
		summary.TradingPL, summary.WinRate, summary.ReturnOnInvestment)

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render equity curve: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("generate chart bytes: %w", err)
	}
	return buf, nil
}

// RenderMonthlyPL draws cumulative profit and loss per month as a bar
// chart.
func RenderMonthlyPL(summary core.Summary) ([]byte, error) {
	months := summary.MonthlyCumulativePL
	if len(months) == 0 {
		return nil, fmt.Errorf("no monthly data to render")
	}

	xLabels := make([]string, 0, len(months))
	values := make([]float64, 0, len(months))
	for _, m := range months {
		xLabels = append(xLabels, m.Month)
		values = append(values, m.CumulativePL)
	}

	yMin, yMax := paddedRange(values)

	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("Cumulative P/L by Month"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data: xLabels,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render monthly chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("generate chart bytes: %w", err)
	}
	return buf, nil
}

func paddedRange(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	if padding == 0 {
		padding = 1
	}
	return minVal - padding, maxVal + padding
}

func splitNumber(labels int) int {
	if labels <= 30 {
		n := labels / 3
		if n < 3 {
			n = 3
		}
		return n
	}
	return 6
}
