package deck

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"

	relTypeSlide  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeMaster = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relTypeLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeTheme  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	relTypeImage  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeOffDoc = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// WriteFile serializes the presentation to a .pptx file on disk.
func (p *Presentation) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := p.Save(f); err != nil {
		return err
	}
	return f.Close()
}

// Save serializes the presentation as an OPC package (pptx) to w.
func (p *Presentation) Save(w io.Writer) error {
	zw := zip.NewWriter(w)

	var mediaFiles [][]byte // imageN.png payloads, 1-based index

	// Slide parts first so media indices are known for content types.
	slideParts := make([]string, len(p.Slides))
	slideRels := make([]string, len(p.Slides))
	for i, slide := range p.Slides {
		slideParts[i], slideRels[i] = writeSlideXML(slide, &mediaFiles)
	}

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", contentTypesXML(len(p.Slides))},
		{"_rels/.rels", rootRelsXML},
		{"ppt/presentation.xml", presentationXML(p)},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(len(p.Slides))},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
		{"ppt/theme/theme1.xml", themeXML},
	}
	for i := range p.Slides {
		parts = append(parts,
			struct{ name, data string }{fmt.Sprintf("ppt/slides/slide%d.xml", i+1), slideParts[i]},
			struct{ name, data string }{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), slideRels[i]},
		)
	}

	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.data)); err != nil {
			return fmt.Errorf("write part %s: %w", part.name, err)
		}
	}

	for i, data := range mediaFiles {
		name := fmt.Sprintf("ppt/media/image%d.png", i+1)
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write part %s: %w", name, err)
		}
	}

	return zw.Close()
}

func contentTypesXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="` + relTypeOffDoc + `" Target="ppt/presentation.xml"/>` +
	`</Relationships>`

func presentationXML(p *Presentation) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:presentation xmlns:a=%q xmlns:r=%q xmlns:p=%q>`, nsA, nsR, nsP)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := range p.Slides {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, 2+i)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/>`, p.SlideWidth, p.SlideHeight)
	b.WriteString(`<p:notesSz cx="6858000" cy="9144000"/>`)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func presentationRelsXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + relTypeMaster + `" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, 1+i, relTypeSlide, i)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

const slideMasterXML = xmlHeader +
	`<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
	`<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
	`</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideMasterRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="` + relTypeLayout + `" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relTypeTheme + `" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader +
	`<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" type="blank">` +
	`<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
	`</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>`

const slideLayoutRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="` + relTypeMaster + `" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

// Minimal theme: PowerPoint requires the part to exist; the deck styles
// every run explicitly so the scheme values are mostly inert.
const themeXML = xmlHeader +
	`<a:theme xmlns:a="` + nsA + `" name="Office">` +
	`<a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2>` +
	`<a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1>` +
	`<a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>` +
	`<a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5>` +
	`<a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink>` +
	`<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements>` +
	`</a:theme>`

// slideWriter carries per-slide serialization state: the next shape id and
// the relationship entries for embedded media.
type slideWriter struct {
	b      strings.Builder
	nextID int
	rels   []string // Relationship XML fragments, rId1 reserved for layout
	media  *[][]byte
}

func (sw *slideWriter) id() int {
	sw.nextID++
	return sw.nextID
}

// writeSlideXML renders one slide part and its rels part. Media payloads
// are appended to the shared package-level list.
func writeSlideXML(s *Slide, media *[][]byte) (slideXML, relsXML string) {
	sw := &slideWriter{nextID: 1, media: media}

	sw.b.WriteString(xmlHeader)
	fmt.Fprintf(&sw.b, `<p:sld xmlns:a=%q xmlns:r=%q xmlns:p=%q>`, nsA, nsR, nsP)
	sw.b.WriteString(`<p:cSld><p:spTree>`)
	sw.b.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
	for _, shape := range s.Shapes {
		sw.writeShape(shape)
	}
	sw.b.WriteString(`</p:spTree></p:cSld>`)
	sw.b.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sw.b.WriteString(`</p:sld>`)

	var rb strings.Builder
	rb.WriteString(xmlHeader)
	rb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	rb.WriteString(`<Relationship Id="rId1" Type="` + relTypeLayout + `" Target="../slideLayouts/slideLayout1.xml"/>`)
	for _, r := range sw.rels {
		rb.WriteString(r)
	}
	rb.WriteString(`</Relationships>`)

	return sw.b.String(), rb.String()
}

func (sw *slideWriter) writeShape(s Shape) {
	switch v := s.(type) {
	case *TextBox:
		sw.writeTextBox(v)
	case *Group:
		sw.writeGroup(v)
	case *Table:
		sw.writeTable(v)
	case *Picture:
		sw.writePicture(v)
	}
}

func (sw *slideWriter) writeTextBox(t *TextBox) {
	id := sw.id()
	fmt.Fprintf(&sw.b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, id)
	sw.b.WriteString(`<p:spPr>`)
	writeXfrm(&sw.b, t.Box)
	sw.b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`)
	if t.Fill != "" {
		fmt.Fprintf(&sw.b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, t.Fill)
	}
	if t.Line != "" {
		fmt.Fprintf(&sw.b, `<a:ln><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:ln>`, t.Line)
	}
	sw.b.WriteString(`</p:spPr>`)
	writeTxBody(&sw.b, &t.Frame)
	sw.b.WriteString(`</p:sp>`)
}

func (sw *slideWriter) writeGroup(g *Group) {
	id := sw.id()
	fmt.Fprintf(&sw.b, `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="Group %d"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`, id, id)
	sw.b.WriteString(`<p:grpSpPr><a:xfrm>`)
	fmt.Fprintf(&sw.b, `<a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/>`, g.Box.Left, g.Box.Top, g.Box.Width, g.Box.Height)
	// Child space equals slide space so nested boxes stay absolute.
	fmt.Fprintf(&sw.b, `<a:chOff x="%d" y="%d"/><a:chExt cx="%d" cy="%d"/>`, g.Box.Left, g.Box.Top, g.Box.Width, g.Box.Height)
	sw.b.WriteString(`</a:xfrm></p:grpSpPr>`)
	for _, child := range g.Shapes {
		sw.writeShape(child)
	}
	sw.b.WriteString(`</p:grpSp>`)
}

func (sw *slideWriter) writeTable(t *Table) {
	id := sw.id()
	fmt.Fprintf(&sw.b, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table %d"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, id, id)
	fmt.Fprintf(&sw.b, `<p:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm>`, t.Box.Left, t.Box.Top, t.Box.Width, t.Box.Height)
	sw.b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">`)
	sw.b.WriteString(`<a:tbl><a:tblPr firstRow="1" bandRow="1"/>`)

	cols := 0
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	widths := t.ColWidths
	if len(widths) != cols && cols > 0 {
		widths = make([]EMU, cols)
		for i := range widths {
			widths[i] = t.Box.Width / EMU(cols)
		}
	}
	sw.b.WriteString(`<a:tblGrid>`)
	for _, w := range widths {
		fmt.Fprintf(&sw.b, `<a:gridCol w="%d"/>`, w)
	}
	sw.b.WriteString(`</a:tblGrid>`)

	rowHeight := EMU(0)
	if len(t.Rows) > 0 {
		rowHeight = t.Box.Height / EMU(len(t.Rows))
	}
	for _, row := range t.Rows {
		fmt.Fprintf(&sw.b, `<a:tr h="%d">`, rowHeight)
		for _, cell := range row {
			sw.b.WriteString(`<a:tc>`)
			writeCellTxBody(&sw.b, cell)
			sw.b.WriteString(`<a:tcPr/></a:tc>`)
		}
		sw.b.WriteString(`</a:tr>`)
	}
	sw.b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
}

func (sw *slideWriter) writePicture(p *Picture) {
	*sw.media = append(*sw.media, p.Data)
	mediaIdx := len(*sw.media)
	relID := fmt.Sprintf("rId%d", 1+len(sw.rels)+1) // rId1 is the layout
	sw.rels = append(sw.rels, fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="../media/image%d.png"/>`, relID, relTypeImage, mediaIdx))

	id := sw.id()
	fmt.Fprintf(&sw.b, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`, id, id)
	fmt.Fprintf(&sw.b, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`, relID)
	sw.b.WriteString(`<p:spPr>`)
	writeXfrm(&sw.b, p.Box)
	sw.b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`)
}

func writeXfrm(b *strings.Builder, box Box) {
	fmt.Fprintf(b, `<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, box.Left, box.Top, box.Width, box.Height)
}

func writeTxBody(b *strings.Builder, tf *TextFrame) {
	b.WriteString(`<p:txBody>`)
	if tf.WordWrap {
		b.WriteString(`<a:bodyPr wrap="square"/>`)
	} else {
		b.WriteString(`<a:bodyPr/>`)
	}
	b.WriteString(`<a:lstStyle/>`)
	writeParagraphs(b, tf)
	b.WriteString(`</p:txBody>`)
}

// writeCellTxBody uses the plain a:txBody element tables require.
func writeCellTxBody(b *strings.Builder, tf *TextFrame) {
	b.WriteString(`<a:txBody><a:bodyPr/><a:lstStyle/>`)
	writeParagraphs(b, tf)
	b.WriteString(`</a:txBody>`)
}

func writeParagraphs(b *strings.Builder, tf *TextFrame) {
	if len(tf.Paragraphs) == 0 {
		b.WriteString(`<a:p/>`)
		return
	}
	for _, p := range tf.Paragraphs {
		b.WriteString(`<a:p>`)
		if p.Align != "" || p.SpaceAfter > 0 {
			b.WriteString(`<a:pPr`)
			if p.Align != "" {
				fmt.Fprintf(b, ` algn=%q`, p.Align)
			}
			b.WriteString(`>`)
			if p.SpaceAfter > 0 {
				fmt.Fprintf(b, `<a:spcAft><a:spcPts val="%d"/></a:spcAft>`, p.SpaceAfter*100)
			}
			b.WriteString(`</a:pPr>`)
		}
		for _, r := range p.Runs {
			b.WriteString(`<a:r><a:rPr lang="en-US"`)
			if r.Size > 0 {
				fmt.Fprintf(b, ` sz="%d"`, r.Size*100)
			}
			if r.Bold {
				b.WriteString(` b="1"`)
			}
			b.WriteString(`>`)
			if r.Color != "" {
				fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, r.Color)
			}
			b.WriteString(`</a:rPr>`)
			fmt.Fprintf(b, `<a:t>%s</a:t>`, xmlEscape(r.Text))
			b.WriteString(`</a:r>`)
		}
		b.WriteString(`</a:p>`)
	}
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func xmlEscape(s string) string { return xmlEscaper.Replace(s) }
