package chart

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"qbr-generator-go/internal/logger"
)

var (
	proactiveColor = drawing.ColorFromHex("22C55E") // green
	reactiveColor  = drawing.ColorFromHex("EF4444") // red
)

// Render produces the support distribution PNG: a horizontal two-segment
// stacked bar of proactive vs reactive share. Deterministic for a given
// input pair.
//
// A (0, 0) input means no ticket matched either classification set; the
// bar falls back to an even 50/50 split so the slide never shows an empty
// graphic. That is a display default, not a data assertion.
func Render(proactivePct, reactivePct float64) ([]byte, error) {
	log := logger.Component("chart")

	if proactivePct == 0 && reactivePct == 0 {
		log.Info("no classified tickets, rendering 50/50 display fallback")
		proactivePct = 50
		reactivePct = 50
	}

	sbc := chart.StackedBarChart{
		Title:        "Proactive vs. Reactive Support Distribution",
		TitleStyle:   chart.Style{FontSize: 14, FontColor: drawing.ColorFromHex("2E5C8A")},
		Width:        900,
		Height:       350,
		BarSpacing:   40,
		IsHorizontal: true,
		Background:   chart.Style{FillColor: drawing.ColorWhite, Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Canvas:       chart.Style{FillColor: drawing.ColorWhite},
		XAxis:        chart.Shown(),
		YAxis:        chart.Shown(),
		Bars: []chart.StackedBar{
			{
				Name:  "Support Distribution",
				Width: 120,
				Values: []chart.Value{
					segment(proactivePct, proactiveColor),
					segment(reactivePct, reactiveColor),
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := sbc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// segment builds one bar segment. The numeric label is drawn only when the
// share is at least 10, below that the text would overlap unreadably.
func segment(pct float64, color drawing.Color) chart.Value {
	label := ""
	if pct >= 10 {
		label = fmt.Sprintf("%d%%", int(pct))
	}
	return chart.Value{
		Value: pct,
		Label: label,
		Style: chart.Style{
			FillColor:   color,
			StrokeColor: color,
			FontColor:   drawing.ColorWhite,
			FontSize:    18,
		},
	}
}
