package deck

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiny but valid PNG payload for picture round-trips
var testPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
	0x44, 0xAE, 0x42, 0x60, 0x82,
}

func saveLoad(t *testing.T, prs *Presentation) *Presentation {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, prs.Save(&buf))
	loaded, err := Load(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return loaded
}

func TestRoundTripSlideGeometry(t *testing.T) {
	prs := New()
	prs.AddSlide()
	prs.AddSlide()

	loaded := saveLoad(t, prs)

	assert.Equal(t, Inches(10), loaded.SlideWidth)
	assert.Equal(t, Inches(7.5), loaded.SlideHeight)
	require.Len(t, loaded.Slides, 2)
}

func TestRoundTripTextBox(t *testing.T) {
	prs := New()
	slide := prs.AddSlide()
	tb := slide.AddTextBox(Box{Left: Inches(0.5), Top: Inches(1), Width: Inches(9), Height: Inches(1.2)})
	tb.Fill = "2E5C8A"
	tb.Line = "E2E8F0"
	p := tb.Frame.AddParagraph("Quarterly Business Review")
	p.Align = "ctr"
	p.SpaceAfter = 12
	p.Runs[0].Size = 36
	p.Runs[0].Bold = true
	p.Runs[0].Color = "FFFFFF"

	loaded := saveLoad(t, prs)

	require.Len(t, loaded.Slides, 1)
	require.Len(t, loaded.Slides[0].Shapes, 1)
	got, ok := loaded.Slides[0].Shapes[0].(*TextBox)
	require.True(t, ok)

	assert.Equal(t, tb.Box, got.Box)
	assert.Equal(t, "2E5C8A", got.Fill)
	assert.Equal(t, "E2E8F0", got.Line)
	assert.Equal(t, "Quarterly Business Review", got.Frame.Text())

	gotPara := got.Frame.Paragraphs[0]
	assert.Equal(t, "ctr", gotPara.Align)
	assert.Equal(t, 12, gotPara.SpaceAfter)
	assert.Equal(t, 36, gotPara.Runs[0].Size)
	assert.True(t, gotPara.Runs[0].Bold)
	assert.Equal(t, "FFFFFF", gotPara.Runs[0].Color)
}

func TestRoundTripPreservesShapeOrder(t *testing.T) {
	prs := New()
	slide := prs.AddSlide()
	for _, label := range []string{"first", "second", "third"} {
		tb := slide.AddTextBox(Box{Width: Inches(2), Height: Inches(1)})
		tb.Frame.AddParagraph(label)
	}

	loaded := saveLoad(t, prs)

	require.Len(t, loaded.Slides[0].Shapes, 3)
	for i, want := range []string{"first", "second", "third"} {
		tb := loaded.Slides[0].Shapes[i].(*TextBox)
		assert.Equal(t, want, tb.Frame.Text())
	}
}

func TestRoundTripNestedGroup(t *testing.T) {
	inner := &TextBox{Box: Box{Left: Inches(1), Top: Inches(1), Width: Inches(2), Height: Inches(1)}}
	inner.Frame.AddParagraph("{{TICKET_COUNT}}")
	group := &Group{
		Box:    Box{Left: Inches(1), Top: Inches(1), Width: Inches(4), Height: Inches(2)},
		Shapes: []Shape{inner},
	}

	prs := New()
	slide := prs.AddSlide()
	slide.Shapes = append(slide.Shapes, group)

	loaded := saveLoad(t, prs)

	g, ok := loaded.Slides[0].Shapes[0].(*Group)
	require.True(t, ok)
	assert.Equal(t, group.Box, g.Box)
	require.Len(t, g.Shapes, 1)
	child := g.Shapes[0].(*TextBox)
	assert.Equal(t, inner.Box, child.Box)
	assert.Equal(t, "{{TICKET_COUNT}}", child.Frame.Text())
}

func TestRoundTripTable(t *testing.T) {
	mkCell := func(text string) *TextFrame {
		tf := &TextFrame{}
		tf.AddParagraph(text)
		return tf
	}
	tbl := &Table{
		Box: Box{Left: Inches(1), Top: Inches(2), Width: Inches(8), Height: Inches(2)},
		Rows: [][]*TextFrame{
			{mkCell("Metric"), mkCell("Value")},
			{mkCell("Same-Day Resolution"), mkCell("{{SAME_DAY_RATE}}%")},
		},
	}

	prs := New()
	slide := prs.AddSlide()
	slide.Shapes = append(slide.Shapes, tbl)

	loaded := saveLoad(t, prs)

	got, ok := loaded.Slides[0].Shapes[0].(*Table)
	require.True(t, ok)
	assert.Equal(t, tbl.Box, got.Box)
	require.Len(t, got.Rows, 2)
	require.Len(t, got.Rows[1], 2)
	assert.Equal(t, "{{SAME_DAY_RATE}}%", got.Rows[1][1].Text())
	// even split fallback was persisted into the grid
	require.Len(t, got.ColWidths, 2)
	assert.Equal(t, Inches(4), got.ColWidths[0])
}

func TestRoundTripPicture(t *testing.T) {
	prs := New()
	slide := prs.AddSlide()
	box := Box{Left: Inches(2), Top: Inches(2.5), Width: Inches(6), Height: Inches(4)}
	slide.AddPicture(testPNG, box)

	loaded := saveLoad(t, prs)

	pic, ok := loaded.Slides[0].Shapes[0].(*Picture)
	require.True(t, ok)
	assert.Equal(t, box, pic.Box)
	assert.Equal(t, testPNG, pic.Data)
}

func TestRoundTripTextEscaping(t *testing.T) {
	prs := New()
	slide := prs.AddSlide()
	tb := slide.AddTextBox(Box{Width: Inches(4), Height: Inches(1)})
	tb.Frame.AddParagraph(`Tickets < 5 & "critical" > 0`)

	loaded := saveLoad(t, prs)

	got := loaded.Slides[0].Shapes[0].(*TextBox)
	assert.Equal(t, `Tickets < 5 & "critical" > 0`, got.Frame.Text())
}

func TestLoadRejectsGarbage(t *testing.T) {
	junk := []byte("not a zip archive at all")
	_, err := Load(bytes.NewReader(junk), int64(len(junk)))
	assert.Error(t, err)
}
