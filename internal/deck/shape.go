// Package deck models a slide deck as a tree of typed shapes and
// round-trips it through the PowerPoint file format. A slide is an ordered
// sequence of shapes; a shape is a text box, a group of child shapes, a
// table of text cells, or a picture. Containers nest to arbitrary depth.
package deck

import "strings"

// EMU is the OOXML length unit, 914400 per inch.
type EMU int64

const EMUPerInch EMU = 914400

// Inches converts inches to EMUs.
func Inches(v float64) EMU { return EMU(v * float64(EMUPerInch)) }

// Box is a shape's bounding rectangle on the slide.
type Box struct {
	Left, Top, Width, Height EMU
}

// Run is a contiguous span of uniformly styled text.
type Run struct {
	Text string
	Size int    // font size in points, 0 inherits
	Bold bool
	Color string // RRGGBB hex, "" inherits
}

// Paragraph is one line block of runs.
type Paragraph struct {
	Runs       []*Run
	Align      string // "", "ctr" or "r"
	SpaceAfter int    // points
}

// TextFrame holds a shape's text content.
type TextFrame struct {
	Paragraphs []*Paragraph
	WordWrap   bool
}

// Text returns the concatenated text of every run, paragraphs joined with
// newlines.
func (tf *TextFrame) Text() string {
	var parts []string
	for _, p := range tf.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			b.WriteString(r.Text)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

// Clear empties the text of every run while keeping the run structure and
// styling intact.
func (tf *TextFrame) Clear() {
	for _, p := range tf.Paragraphs {
		for _, r := range p.Runs {
			r.Text = ""
		}
	}
}

// AddParagraph appends a paragraph with a single run and returns it.
func (tf *TextFrame) AddParagraph(text string) *Paragraph {
	p := &Paragraph{Runs: []*Run{{Text: text}}}
	tf.Paragraphs = append(tf.Paragraphs, p)
	return p
}

// Shape is one visual element on a slide. The concrete variants are
// *TextBox, *Group, *Table and *Picture; consumers dispatch with a type
// switch or through the TextHolder/Container capability interfaces rather
// than probing attributes.
type Shape interface {
	Bounds() Box
}

// TextHolder is implemented by shapes that carry an editable text frame.
type TextHolder interface {
	Shape
	TextFrame() *TextFrame
}

// Container is implemented by shapes that hold an ordered list of child
// shapes.
type Container interface {
	Shape
	Children() []Shape
}

// TextBox is a rectangular shape with text, optionally with a solid
// background fill and border.
type TextBox struct {
	Box   Box
	Frame TextFrame
	Fill  string // RRGGBB background, "" = no fill
	Line  string // RRGGBB border, "" = no border
}

func (t *TextBox) Bounds() Box           { return t.Box }
func (t *TextBox) TextFrame() *TextFrame { return &t.Frame }

// Group is a grouped container of shapes.
type Group struct {
	Box    Box
	Shapes []Shape
}

func (g *Group) Bounds() Box       { return g.Box }
func (g *Group) Children() []Shape { return g.Shapes }

// Table is a tabular container: rows of cells, each cell a text frame.
type Table struct {
	Box       Box
	Rows      [][]*TextFrame
	ColWidths []EMU // optional, evenly divided when empty
}

func (t *Table) Bounds() Box { return t.Box }

// Picture is an embedded raster image stretched to its bounding box.
type Picture struct {
	Box  Box
	Data []byte // PNG bytes
}

func (p *Picture) Bounds() Box { return p.Box }

// Slide is an ordered sequence of shapes.
type Slide struct {
	Shapes []Shape
}

// AddTextBox appends an empty text box and returns it.
func (s *Slide) AddTextBox(box Box) *TextBox {
	tb := &TextBox{Box: box}
	s.Shapes = append(s.Shapes, tb)
	return tb
}

// AddPicture appends a picture at the given bounding box.
func (s *Slide) AddPicture(data []byte, box Box) *Picture {
	pic := &Picture{Box: box, Data: data}
	s.Shapes = append(s.Shapes, pic)
	return pic
}

// Presentation is a deck owned exclusively by one generation call. It is
// loaded from a template, mutated in place, serialized and discarded.
type Presentation struct {
	SlideWidth  EMU
	SlideHeight EMU
	Slides      []*Slide
}

// New returns an empty presentation at the standard 10 x 7.5 inch canvas.
func New() *Presentation {
	return &Presentation{
		SlideWidth:  Inches(10),
		SlideHeight: Inches(7.5),
	}
}

// AddSlide appends an empty slide and returns it.
func (p *Presentation) AddSlide() *Slide {
	s := &Slide{}
	p.Slides = append(p.Slides, s)
	return s
}
