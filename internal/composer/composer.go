// Package composer orchestrates one deck generation: aggregate metrics,
// render the distribution chart, substitute placeholder tokens across the
// template and emit the finished pptx bytes.
package composer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"qbr-generator-go/internal/chart"
	"qbr-generator-go/internal/deck"
	"qbr-generator-go/internal/logger"
	"qbr-generator-go/internal/metrics"
	"qbr-generator-go/internal/types"
)

// Compose loads the template deck, computes metrics over tickets, merges
// them with the caller-supplied context tokens (client name, period,
// recommendations), inserts the rendered chart and returns the serialized
// document.
//
// A template that cannot be located or loaded is fatal and produces no
// output. Everything downstream of loading is non-fatal: data quality
// problems degrade individual metrics, a failed chart render skips the
// image, unresolved tokens stay literal in the output.
func Compose(templatePath string, contextTokens map[string]string, tickets []types.Ticket) ([]byte, error) {
	log := logger.Component("composer")

	prs, err := deck.Open(templatePath)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", templatePath, err)
	}

	result := metrics.Aggregate(tickets, metrics.DefaultClassification())

	chartPNG, err := chart.Render(float64(result.ProactivePct), float64(result.ReactivePct))
	if err != nil {
		log.WithError(err).Error("chart render failed, slide keeps its placeholder box")
		chartPNG = nil
	}

	// One merged map for text substitution. The chart placeholder is
	// handled by image insertion below, never textually.
	tokens := deck.TokenMap{}
	for k, v := range contextTokens {
		tokens[k] = v
	}
	for k, v := range result.Tokens() {
		tokens[k] = v
	}
	delete(tokens, deck.ChartPlaceholderToken)

	for i, slide := range prs.Slides {
		insertChart(slide, chartPNG, log.WithField("slide", i+1))
		for _, shape := range slide.Shapes {
			deck.Resolve(shape, tokens)
		}
	}

	var buf bytes.Buffer
	if err := prs.Save(&buf); err != nil {
		return nil, fmt.Errorf("serialize deck: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"slides":  len(prs.Slides),
		"tickets": result.TicketCount,
		"bytes":   buf.Len(),
	}).Info("deck composed")
	return buf.Bytes(), nil
}

// insertChart swaps the first shape holding the chart placeholder token for
// the rendered image at that shape's exact position and size. At most one
// image goes on a slide even when the token appears in several shapes;
// redundant occurrences stay as literal text.
func insertChart(slide *deck.Slide, png []byte, log *logrus.Entry) {
	if png == nil {
		return
	}
	inserted := false
	for _, shape := range slide.Shapes {
		th, ok := shape.(deck.TextHolder)
		if !ok || inserted {
			continue
		}
		if strings.Contains(th.TextFrame().Text(), deck.ChartPlaceholderToken) {
			bounds := shape.Bounds()
			th.TextFrame().Clear()
			slide.AddPicture(png, bounds)
			inserted = true
			log.Info("chart image inserted")
		}
	}
}
