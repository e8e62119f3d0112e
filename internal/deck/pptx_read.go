package deck

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// Open loads a .pptx file from disk.
func Open(p string) (*Presentation, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat template: %w", err)
	}
	return Load(f, st.Size())
}

// Load reads a pptx package. It round-trips the shape kinds this package
// writes (text boxes, groups, tables, pictures); parts outside the model
// are ignored.
func Load(r io.ReaderAt, size int64) (*Presentation, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read package: %w", err)
	}

	files := map[string][]byte{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", zf.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", zf.Name, err)
		}
		files[zf.Name] = data
	}

	prs := New()

	slideParts, err := slidePartOrder(files)
	if err != nil {
		return nil, err
	}

	if presData, ok := files["ppt/presentation.xml"]; ok {
		var pres xmlPresentation
		if err := xml.Unmarshal(presData, &pres); err == nil && pres.SldSz.Cx > 0 {
			prs.SlideWidth = EMU(pres.SldSz.Cx)
			prs.SlideHeight = EMU(pres.SldSz.Cy)
		}
	}

	for _, part := range slideParts {
		data, ok := files[part]
		if !ok {
			return nil, fmt.Errorf("missing slide part %s", part)
		}
		rels := slideRelTargets(files, part)
		slide, err := parseSlide(data, rels, files)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", part, err)
		}
		prs.Slides = append(prs.Slides, slide)
	}

	return prs, nil
}

// slidePartOrder resolves slide part names in presentation order via the
// sldIdLst relationship ids, falling back to numeric part order.
func slidePartOrder(files map[string][]byte) ([]string, error) {
	presData, okPres := files["ppt/presentation.xml"]
	relsData, okRels := files["ppt/_rels/presentation.xml.rels"]
	if okPres && okRels {
		var pres xmlPresentation
		var rels xmlRelationships
		if xml.Unmarshal(presData, &pres) == nil && xml.Unmarshal(relsData, &rels) == nil && len(pres.SldIdLst.Ids) > 0 {
			byID := map[string]string{}
			for _, rel := range rels.Rels {
				byID[rel.ID] = resolveTarget("ppt", rel.Target)
			}
			var parts []string
			for _, sld := range pres.SldIdLst.Ids {
				target, ok := byID[sld.RID]
				if !ok {
					return nil, fmt.Errorf("slide relationship %s not found", sld.RID)
				}
				parts = append(parts, target)
			}
			return parts, nil
		}
	}

	var parts []string
	for name := range files {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("package contains no slides")
	}
	sort.Slice(parts, func(i, j int) bool {
		return slideNumber(parts[i]) < slideNumber(parts[j])
	})
	return parts, nil
}

func slideNumber(part string) int {
	n := 0
	fmt.Sscanf(path.Base(part), "slide%d.xml", &n)
	return n
}

func slideRelTargets(files map[string][]byte, slidePart string) map[string]string {
	relPart := path.Join(path.Dir(slidePart), "_rels", path.Base(slidePart)+".rels")
	out := map[string]string{}
	data, ok := files[relPart]
	if !ok {
		return out
	}
	var rels xmlRelationships
	if xml.Unmarshal(data, &rels) != nil {
		return out
	}
	for _, rel := range rels.Rels {
		out[rel.ID] = resolveTarget(path.Dir(slidePart), rel.Target)
	}
	return out
}

func resolveTarget(baseDir, target string) string {
	return path.Clean(path.Join(baseDir, target))
}

// parseSlide walks the slide XML with a streaming decoder so sibling shape
// order is preserved exactly.
func parseSlide(data []byte, rels map[string]string, files map[string][]byte) (*Slide, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("no spTree element")
		}
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "spTree" {
			shapes, err := parseShapes(d, "spTree", rels, files)
			if err != nil {
				return nil, err
			}
			return &Slide{Shapes: shapes}, nil
		}
	}
}

func parseShapes(d *xml.Decoder, end string, rels map[string]string, files map[string][]byte) ([]Shape, error) {
	var shapes []Shape
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				var sp xmlSp
				if err := d.DecodeElement(&sp, &t); err != nil {
					return nil, err
				}
				shapes = append(shapes, sp.toTextBox())
			case "grpSp":
				g, err := parseGroup(d, rels, files)
				if err != nil {
					return nil, err
				}
				shapes = append(shapes, g)
			case "graphicFrame":
				var gf xmlGraphicFrame
				if err := d.DecodeElement(&gf, &t); err != nil {
					return nil, err
				}
				if tbl := gf.toTable(); tbl != nil {
					shapes = append(shapes, tbl)
				}
			case "pic":
				var pic xmlPic
				if err := d.DecodeElement(&pic, &t); err != nil {
					return nil, err
				}
				shapes = append(shapes, pic.toPicture(rels, files))
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == end {
				return shapes, nil
			}
		}
	}
}

func parseGroup(d *xml.Decoder, rels map[string]string, files map[string][]byte) (*Group, error) {
	g := &Group{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "grpSpPr":
				var pr xmlGrpSpPr
				if err := d.DecodeElement(&pr, &t); err != nil {
					return nil, err
				}
				if pr.Xfrm != nil {
					g.Box = pr.Xfrm.box()
				}
			case "sp":
				var sp xmlSp
				if err := d.DecodeElement(&sp, &t); err != nil {
					return nil, err
				}
				g.Shapes = append(g.Shapes, sp.toTextBox())
			case "grpSp":
				child, err := parseGroup(d, rels, files)
				if err != nil {
					return nil, err
				}
				g.Shapes = append(g.Shapes, child)
			case "graphicFrame":
				var gf xmlGraphicFrame
				if err := d.DecodeElement(&gf, &t); err != nil {
					return nil, err
				}
				if tbl := gf.toTable(); tbl != nil {
					g.Shapes = append(g.Shapes, tbl)
				}
			case "pic":
				var pic xmlPic
				if err := d.DecodeElement(&pic, &t); err != nil {
					return nil, err
				}
				g.Shapes = append(g.Shapes, pic.toPicture(rels, files))
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "grpSp" {
				return g, nil
			}
		}
	}
}

// --- XML part structures (matched by local name) ---

type xmlPresentation struct {
	SldIdLst struct {
		Ids []struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sldId"`
	} `xml:"sldIdLst"`
	SldSz struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

type xmlRelationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xmlXfrm struct {
	Off struct {
		X int64 `xml:"x,attr"`
		Y int64 `xml:"y,attr"`
	} `xml:"off"`
	Ext struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"ext"`
}

func (x *xmlXfrm) box() Box {
	return Box{Left: EMU(x.Off.X), Top: EMU(x.Off.Y), Width: EMU(x.Ext.Cx), Height: EMU(x.Ext.Cy)}
}

type xmlSolidFill struct {
	Clr struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
}

type xmlSpPr struct {
	Xfrm *xmlXfrm      `xml:"xfrm"`
	Fill *xmlSolidFill `xml:"solidFill"`
	Ln   *struct {
		Fill *xmlSolidFill `xml:"solidFill"`
	} `xml:"ln"`
}

type xmlGrpSpPr struct {
	Xfrm *xmlXfrm `xml:"xfrm"`
}

type xmlRPr struct {
	Sz   int           `xml:"sz,attr"`
	B    string        `xml:"b,attr"`
	Fill *xmlSolidFill `xml:"solidFill"`
}

type xmlRun struct {
	RPr *xmlRPr `xml:"rPr"`
	T   string  `xml:"t"`
}

type xmlPara struct {
	PPr *struct {
		Algn   string `xml:"algn,attr"`
		SpcAft *struct {
			Pts struct {
				Val int `xml:"val,attr"`
			} `xml:"spcPts"`
		} `xml:"spcAft"`
	} `xml:"pPr"`
	Runs []xmlRun `xml:"r"`
}

type xmlTxBody struct {
	BodyPr struct {
		Wrap string `xml:"wrap,attr"`
	} `xml:"bodyPr"`
	Paras []xmlPara `xml:"p"`
}

func (tb *xmlTxBody) toFrame() TextFrame {
	tf := TextFrame{WordWrap: tb.BodyPr.Wrap == "square"}
	for _, xp := range tb.Paras {
		p := &Paragraph{}
		if xp.PPr != nil {
			p.Align = xp.PPr.Algn
			if xp.PPr.SpcAft != nil {
				p.SpaceAfter = xp.PPr.SpcAft.Pts.Val / 100
			}
		}
		for _, xr := range xp.Runs {
			r := &Run{Text: xr.T}
			if xr.RPr != nil {
				r.Size = xr.RPr.Sz / 100
				r.Bold = xr.RPr.B == "1" || xr.RPr.B == "true"
				if xr.RPr.Fill != nil {
					r.Color = xr.RPr.Fill.Clr.Val
				}
			}
			p.Runs = append(p.Runs, r)
		}
		tf.Paragraphs = append(tf.Paragraphs, p)
	}
	return tf
}

type xmlSp struct {
	SpPr   xmlSpPr    `xml:"spPr"`
	TxBody *xmlTxBody `xml:"txBody"`
}

func (sp *xmlSp) toTextBox() *TextBox {
	tb := &TextBox{}
	if sp.SpPr.Xfrm != nil {
		tb.Box = sp.SpPr.Xfrm.box()
	}
	if sp.SpPr.Fill != nil {
		tb.Fill = sp.SpPr.Fill.Clr.Val
	}
	if sp.SpPr.Ln != nil && sp.SpPr.Ln.Fill != nil {
		tb.Line = sp.SpPr.Ln.Fill.Clr.Val
	}
	if sp.TxBody != nil {
		tb.Frame = sp.TxBody.toFrame()
	}
	return tb
}

type xmlGraphicFrame struct {
	Xfrm xmlXfrm `xml:"xfrm"`
	Tbl  *struct {
		Grid struct {
			Cols []struct {
				W int64 `xml:"w,attr"`
			} `xml:"gridCol"`
		} `xml:"tblGrid"`
		Rows []struct {
			Cells []struct {
				TxBody xmlTxBody `xml:"txBody"`
			} `xml:"tc"`
		} `xml:"tr"`
	} `xml:"graphic>graphicData>tbl"`
}

func (gf *xmlGraphicFrame) toTable() *Table {
	if gf.Tbl == nil {
		return nil
	}
	t := &Table{Box: gf.Xfrm.box()}
	for _, col := range gf.Tbl.Grid.Cols {
		t.ColWidths = append(t.ColWidths, EMU(col.W))
	}
	for _, row := range gf.Tbl.Rows {
		var cells []*TextFrame
		for _, c := range row.Cells {
			frame := c.TxBody.toFrame()
			cells = append(cells, &frame)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

type xmlPic struct {
	BlipFill struct {
		Blip struct {
			Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
	SpPr xmlSpPr `xml:"spPr"`
}

func (p *xmlPic) toPicture(rels map[string]string, files map[string][]byte) *Picture {
	pic := &Picture{}
	if p.SpPr.Xfrm != nil {
		pic.Box = p.SpPr.Xfrm.box()
	}
	if target, ok := rels[p.BlipFill.Blip.Embed]; ok {
		pic.Data = files[target]
	}
	return pic
}
