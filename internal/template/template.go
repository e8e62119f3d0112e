// Package template builds the master review deck: eight slides carrying
// the {{...}} placeholder tokens the composer later fills in.
package template

import (
	"qbr-generator-go/internal/deck"
	"qbr-generator-go/internal/logger"
)

// Brand palette.
const (
	blue      = "2E5C8A"
	gray      = "4A5568"
	lightGray = "E2E8F0"
	green     = "22C55E"
	red       = "EF4444"
	white     = "FFFFFF"
)

// Build assembles the master deck in memory.
func Build() *deck.Presentation {
	prs := deck.New()
	addTitleSlide(prs)
	addExecutiveSummary(prs)
	addMetricsOverview(prs)
	addChartSlide(prs)
	addStabilitySlide(prs)
	addSLASlide(prs)
	addRecommendations(prs)
	addThankYou(prs)
	return prs
}

// Write builds the master deck and saves it to path.
func Write(path string) error {
	log := logger.Component("template")
	if err := Build().WriteFile(path); err != nil {
		return err
	}
	log.WithField("path", path).Info("master template written")
	return nil
}

func box(left, top, width, height float64) deck.Box {
	return deck.Box{
		Left:   deck.Inches(left),
		Top:    deck.Inches(top),
		Width:  deck.Inches(width),
		Height: deck.Inches(height),
	}
}

func textBox(s *deck.Slide, b deck.Box, text string, size int, bold bool, color, align string) *deck.TextBox {
	tb := s.AddTextBox(b)
	p := tb.Frame.AddParagraph(text)
	p.Align = align
	r := p.Runs[0]
	r.Size = size
	r.Bold = bold
	r.Color = color
	return tb
}

func slideTitle(s *deck.Slide, text string, size int) {
	textBox(s, box(0.5, 0.5, 9, 0.8), text, size, true, blue, "")
}

func addTitleSlide(prs *deck.Presentation) {
	s := prs.AddSlide()
	textBox(s, box(1, 2.5, 8, 1), "Quarterly Business Review", 48, true, blue, "ctr")
	textBox(s, box(1, 3.7, 8, 0.8), "{{CLIENT_NAME}}", 32, false, gray, "ctr")
	textBox(s, box(1, 6, 8, 0.5), "{{REVIEW_PERIOD}}", 20, false, gray, "ctr")
}

func addExecutiveSummary(prs *deck.Presentation) {
	s := prs.AddSlide()
	slideTitle(s, "Executive Summary", 40)

	content := s.AddTextBox(box(1, 2, 8, 4))
	content.Frame.WordWrap = true
	bullets := []string{
		"We resolved {{TICKET_COUNT}} service requests this quarter",
		"{{SAME_DAY_RATE}}% of closed tickets were resolved the same day",
		"Average first response time: {{AVG_FIRST_RESPONSE}}",
	}
	for _, text := range bullets {
		p := content.Frame.AddParagraph("• " + text)
		p.SpaceAfter = 20
		p.Runs[0].Size = 24
		p.Runs[0].Color = gray
	}
}

// addMetricsOverview lays out three metric cards, each grouped so the card
// background and its labels move together.
func addMetricsOverview(prs *deck.Presentation) {
	s := prs.AddSlide()
	slideTitle(s, "Service Delivery Metrics", 40)

	cards := []struct {
		label string
		value string
	}{
		{"Total Tickets Resolved", "{{TICKET_COUNT}}"},
		{"Same-Day Resolution", "{{SAME_DAY_RATE}}%"},
		{"Avg First Response", "{{AVG_FIRST_RESPONSE}}"},
	}
	xPositions := []float64{1, 3.7, 6.4}
	for i, card := range cards {
		x := xPositions[i]
		g := &deck.Group{Box: box(x, 2.5, 2.2, 2.5)}

		bg := &deck.TextBox{Box: box(x, 2.5, 2.2, 2.5), Fill: lightGray, Line: blue}
		g.Shapes = append(g.Shapes, bg)

		label := &deck.TextBox{Box: box(x, 2.7, 2.2, 0.8)}
		lp := label.Frame.AddParagraph(card.label)
		lp.Align = "ctr"
		lp.Runs[0].Size = 14
		lp.Runs[0].Color = gray
		g.Shapes = append(g.Shapes, label)

		value := &deck.TextBox{Box: box(x, 3.5, 2.2, 1)}
		vp := value.Frame.AddParagraph(card.value)
		vp.Align = "ctr"
		vp.Runs[0].Size = 28
		vp.Runs[0].Bold = true
		vp.Runs[0].Color = blue
		g.Shapes = append(g.Shapes, value)

		s.Shapes = append(s.Shapes, g)
	}
}

func addChartSlide(prs *deck.Presentation) {
	s := prs.AddSlide()
	slideTitle(s, "Service Type Distribution", 40)
	textBox(s, box(0.5, 1.3, 9, 0.4), "Proactive vs Reactive Support", 20, false, gray, "")

	// The composer swaps this shape's box for the rendered chart image.
	textBox(s, box(2, 2.5, 6, 4), "{{CHART_PLACEHOLDER}}", 24, false, gray, "ctr")
}

func addStabilitySlide(prs *deck.Presentation) {
	s := prs.AddSlide()
	slideTitle(s, "Service Stability & Proactive Maintenance", 36)

	left := &deck.TextBox{Box: box(1, 2.5, 3.5, 2), Fill: green}
	lp := left.Frame.AddParagraph("Proactive Work")
	lp.Align = "ctr"
	lp.Runs[0].Size = 28
	lp.Runs[0].Bold = true
	lp.Runs[0].Color = white
	lp2 := left.Frame.AddParagraph("{{PROACTIVE_PERCENT}}%")
	lp2.Align = "ctr"
	lp2.Runs[0].Size = 28
	lp2.Runs[0].Bold = true
	lp2.Runs[0].Color = white
	s.Shapes = append(s.Shapes, left)

	right := &deck.TextBox{Box: box(5.5, 2.5, 3.5, 2), Fill: red}
	rp := right.Frame.AddParagraph("Reactive Issues")
	rp.Align = "ctr"
	rp.Runs[0].Size = 28
	rp.Runs[0].Bold = true
	rp.Runs[0].Color = white
	rp2 := right.Frame.AddParagraph("{{REACTIVE_PERCENT}}%")
	rp2.Align = "ctr"
	rp2.Runs[0].Size = 28
	rp2.Runs[0].Bold = true
	rp2.Runs[0].Color = white
	s.Shapes = append(s.Shapes, right)

	textBox(s, box(1, 5.5, 8, 1),
		"A higher proactive percentage indicates better preventive maintenance and system monitoring.",
		16, false, gray, "ctr")
}

// addSLASlide presents response metrics as a two-column table.
func addSLASlide(prs *deck.Presentation) {
	s := prs.AddSlide()
	slideTitle(s, "SLA Performance & Response Times", 36)

	cell := func(text string, bold bool) *deck.TextFrame {
		tf := &deck.TextFrame{}
		p := tf.AddParagraph(text)
		p.Runs[0].Size = 20
		p.Runs[0].Bold = bold
		p.Runs[0].Color = gray
		return tf
	}

	tbl := &deck.Table{
		Box: box(1.5, 2.5, 7, 2.4),
		Rows: [][]*deck.TextFrame{
			{cell("Average First Response", true), cell("{{AVG_FIRST_RESPONSE}}", false)},
			{cell("Critical Issue Resolution", true), cell("{{CRITICAL_RES_TIME}}", false)},
			{cell("Same-Day Resolution Rate", true), cell("{{SAME_DAY_RATE}}%", false)},
		},
	}
	s.Shapes = append(s.Shapes, tbl)
}

func addRecommendations(prs *deck.Presentation) {
	s := prs.AddSlide()
	slideTitle(s, "Strategic Recommendations", 40)

	yPositions := []float64{2, 3.5, 5}
	for i, y := range yPositions {
		circle := &deck.TextBox{Box: box(1.2, y, 0.5, 0.5), Fill: blue}
		cp := circle.Frame.AddParagraph(string(rune('1' + i)))
		cp.Align = "ctr"
		cp.Runs[0].Size = 24
		cp.Runs[0].Bold = true
		cp.Runs[0].Color = white
		s.Shapes = append(s.Shapes, circle)

		rec := s.AddTextBox(box(2, y, 6.5, 0.8))
		rec.Frame.WordWrap = true
		rp := rec.Frame.AddParagraph(deck.Token("RECOMMENDATION_" + string(rune('1'+i))))
		rp.Runs[0].Size = 18
		rp.Runs[0].Color = gray
	}
}

func addThankYou(prs *deck.Presentation) {
	s := prs.AddSlide()
	textBox(s, box(1, 2.5, 8, 1), "Thank You", 48, true, blue, "ctr")
	textBox(s, box(1, 4, 8, 0.6), "Questions? Contact your account manager", 22, false, gray, "ctr")
	textBox(s, box(1, 5, 8, 1), "{{MSP_CONTACT_INFO}}", 18, false, gray, "ctr")
}
