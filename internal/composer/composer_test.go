package composer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbr-generator-go/internal/deck"
	"qbr-generator-go/internal/template"
	"qbr-generator-go/internal/types"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func masterTemplate(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/master.pptx"
	require.NoError(t, template.Write(path))
	return path
}

func sampleTickets() []types.Ticket {
	return []types.Ticket{
		{
			ID:            1,
			TicketTypeID:  intp(1),
			HasBeenClosed: boolp(true),
			DateOccurred:  "2025-01-06T09:00:00",
			ResponseDate:  "2025-01-06T09:15:00",
			DateClosed:    "2025-01-06T16:00:00",
		},
		{
			ID:           2,
			TicketTypeID: intp(30),
			PriorityID:   intp(1),
			TicketAge:    10,
		},
	}
}

func slideText(s *deck.Slide) string {
	var b strings.Builder
	var visit func(sh deck.Shape)
	visit = func(sh deck.Shape) {
		if th, ok := sh.(deck.TextHolder); ok {
			b.WriteString(th.TextFrame().Text())
			b.WriteString("\n")
		}
		if tbl, ok := sh.(*deck.Table); ok {
			for _, row := range tbl.Rows {
				for _, cell := range row {
					b.WriteString(cell.Text())
					b.WriteString("\n")
				}
			}
		}
		if c, ok := sh.(deck.Container); ok {
			for _, child := range c.Children() {
				visit(child)
			}
		}
	}
	for _, sh := range s.Shapes {
		visit(sh)
	}
	return b.String()
}

func countPictures(s *deck.Slide) int {
	n := 0
	for _, sh := range s.Shapes {
		if _, ok := sh.(*deck.Picture); ok {
			n++
		}
	}
	return n
}

func TestComposeMissingTemplateFails(t *testing.T) {
	_, err := Compose(t.TempDir()+"/absent.pptx", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load template")
}

func TestComposeFillsTokensAndInsertsChart(t *testing.T) {
	out, err := Compose(masterTemplate(t), map[string]string{
		"{{CLIENT_NAME}}":      "Acme Corp",
		"{{REVIEW_PERIOD}}":    "Q1 2025",
		"{{MSP_CONTACT_INFO}}": "support@example.com",
		"{{RECOMMENDATION_1}}": "Patch coverage: extend to all servers",
		"{{RECOMMENDATION_2}}": "Monitoring: add disk alerts",
		"{{RECOMMENDATION_3}}": "Backups: verify restores quarterly",
	}, sampleTickets())
	require.NoError(t, err)

	prs, err := deck.Load(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	require.Len(t, prs.Slides, 8)

	var all strings.Builder
	pictures := 0
	for _, s := range prs.Slides {
		all.WriteString(slideText(s))
		pictures += countPictures(s)
	}
	text := all.String()

	assert.Contains(t, text, "Acme Corp")
	assert.Contains(t, text, "Q1 2025")
	assert.Contains(t, text, "support@example.com")
	assert.NotContains(t, text, "{{CLIENT_NAME}}")
	assert.NotContains(t, text, "{{TICKET_COUNT}}")
	assert.NotContains(t, text, deck.ChartPlaceholderToken)

	// the chart lands on exactly one slide
	assert.Equal(t, 1, pictures)
}

func TestComposeMetricsLandInDeckText(t *testing.T) {
	out, err := Compose(masterTemplate(t), map[string]string{}, sampleTickets())
	require.NoError(t, err)

	prs, err := deck.Load(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	var all strings.Builder
	for _, s := range prs.Slides {
		all.WriteString(slideText(s))
	}
	text := all.String()

	// two tickets, one proactive one reactive, one same-day closure
	assert.Contains(t, text, "We resolved 2 service requests")
	assert.Contains(t, text, "Proactive Work\n50%")
	assert.Contains(t, text, "Reactive Issues\n50%")
	assert.Contains(t, text, "15 mins")
	assert.Contains(t, text, "10.0 hours")
}

func TestComposeInsertsAtMostOneChartPerSlide(t *testing.T) {
	// a slide where the reserved token appears in two shapes
	prs := deck.New()
	s := prs.AddSlide()
	first := s.AddTextBox(deck.Box{Left: deck.Inches(1), Top: deck.Inches(1), Width: deck.Inches(4), Height: deck.Inches(3)})
	first.Frame.AddParagraph(deck.ChartPlaceholderToken)
	second := s.AddTextBox(deck.Box{Left: deck.Inches(5), Top: deck.Inches(1), Width: deck.Inches(4), Height: deck.Inches(3)})
	second.Frame.AddParagraph(deck.ChartPlaceholderToken)

	path := t.TempDir() + "/twin.pptx"
	require.NoError(t, prs.WriteFile(path))

	out, err := Compose(path, nil, sampleTickets())
	require.NoError(t, err)

	loaded, err := deck.Load(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	require.Len(t, loaded.Slides, 1)

	assert.Equal(t, 1, countPictures(loaded.Slides[0]))
	// the redundant occurrence stays as literal text
	assert.Contains(t, slideText(loaded.Slides[0]), deck.ChartPlaceholderToken)
}

func TestComposeEmptyTicketBatchStillProducesDeck(t *testing.T) {
	out, err := Compose(masterTemplate(t), map[string]string{
		"{{CLIENT_NAME}}": "Acme Corp",
	}, nil)
	require.NoError(t, err)

	prs, err := deck.Load(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	var all strings.Builder
	for _, s := range prs.Slides {
		all.WriteString(slideText(s))
	}
	text := all.String()

	assert.Contains(t, text, "We resolved 0 service requests")
	assert.Contains(t, text, "N/A")
	assert.NotContains(t, text, "{{SAME_DAY_RATE}}")
}
