package deck

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// OOXML の名前空間です。スライドパートの先頭で毎回宣言します。
const (
	nsDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relTypeNotesMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesMaster"
	relTypeSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	relTypeTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	relTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// relationship は .rels パートの1エントリです。
type relationship struct {
	ID     string
	Type   string
	Target string
}

// WritePPTX はドキュメントを PresentationML パッケージとして w に書き出します。
// パッケージ構成（コンテンツタイプ・リレーションシップ・パート）は
// OPC (ECMA-376 Part 2) の規定に従います。
func WritePPTX(w io.Writer, doc *Document) error {
	zw := zip.NewWriter(w)
	pw := &pptxWriter{zip: zw, doc: doc}

	if err := pw.writeAll(); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

type pptxWriter struct {
	zip        *zip.Writer
	doc        *Document
	mediaCount int
}

func (pw *pptxWriter) writeAll() error {
	hasNotes := false
	for _, slide := range pw.doc.Slides {
		if slide.Notes != "" {
			hasNotes = true
			break
		}
	}

	if err := pw.writeContentTypes(hasNotes); err != nil {
		return err
	}
	if err := pw.writeRels("_rels/.rels", []relationship{
		{ID: "rId1", Type: relTypeOfficeDocument, Target: "ppt/presentation.xml"},
	}); err != nil {
		return err
	}
	if err := pw.writePresentation(hasNotes); err != nil {
		return err
	}
	if err := pw.writeMasterAndLayout(); err != nil {
		return err
	}
	if err := pw.writeTheme(); err != nil {
		return err
	}
	if hasNotes {
		if err := pw.writeNotesMaster(); err != nil {
			return err
		}
	}

	for i, slide := range pw.doc.Slides {
		if err := pw.writeSlide(i+1, slide); err != nil {
			return err
		}
	}
	return nil
}

func (pw *pptxWriter) writePart(name, content string) error {
	f, err := pw.zip.Create(name)
	if err != nil {
		return fmt.Errorf("パート %s の作成に失敗しました: %w", name, err)
	}
	if _, err := io.WriteString(f, xmlHeader+content); err != nil {
		return fmt.Errorf("パート %s の書き込みに失敗しました: %w", name, err)
	}
	return nil
}

func (pw *pptxWriter) writeBinaryPart(name string, data []byte) error {
	f, err := pw.zip.Create(name)
	if err != nil {
		return fmt.Errorf("パート %s の作成に失敗しました: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("パート %s の書き込みに失敗しました: %w", name, err)
	}
	return nil
}

func (pw *pptxWriter) writeRels(name string, rels []relationship) error {
	var sb strings.Builder
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, rel := range rels {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"/>`, rel.ID, rel.Type, escapeXML(rel.Target))
	}
	sb.WriteString(`</Relationships>`)
	return pw.writePart(name, sb.String())
}

func (pw *pptxWriter) writeContentTypes(hasNotes bool) error {
	var sb strings.Builder
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	sb.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	sb.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	sb.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	if hasNotes {
		sb.WriteString(`<Override PartName="/ppt/notesMasters/notesMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"/>`)
	}
	for i, slide := range pw.doc.Slides {
		fmt.Fprintf(&sb, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
		if slide.Notes != "" {
			fmt.Fprintf(&sb, `<Override PartName="/ppt/notesSlides/notesSlide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>`, i+1)
		}
	}
	sb.WriteString(`</Types>`)
	return pw.writePart("[Content_Types].xml", sb.String())
}

func (pw *pptxWriter) writePresentation(hasNotes bool) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawing, nsRelationships, nsPresentation)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)

	rels := []relationship{
		{ID: "rId1", Type: relTypeSlideMaster, Target: "slideMasters/slideMaster1.xml"},
	}
	next := 2
	if hasNotes {
		fmt.Fprintf(&sb, `<p:notesMasterIdLst><p:notesMasterId r:id="rId%d"/></p:notesMasterIdLst>`, next)
		rels = append(rels, relationship{ID: fmt.Sprintf("rId%d", next), Type: relTypeNotesMaster, Target: "notesMasters/notesMaster1.xml"})
		next++
	}

	sb.WriteString(`<p:sldIdLst>`)
	for i := range pw.doc.Slides {
		fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, next)
		rels = append(rels, relationship{
			ID:     fmt.Sprintf("rId%d", next),
			Type:   relTypeSlide,
			Target: fmt.Sprintf("slides/slide%d.xml", i+1),
		})
		next++
	}
	sb.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&sb, `<p:sldSz cx="%d" cy="%d"/>`, pw.doc.Width, pw.doc.Height)
	sb.WriteString(`<p:notesSz cx="6858000" cy="9144000"/>`)
	sb.WriteString(`</p:presentation>`)

	if err := pw.writePart("ppt/presentation.xml", sb.String()); err != nil {
		return err
	}
	return pw.writeRels("ppt/_rels/presentation.xml.rels", rels)
}

// emptySpTree は図形を持たないパートの共通 spTree です。
const emptySpTree = `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree>`

func (pw *pptxWriter) writeMasterAndLayout() error {
	var master strings.Builder
	fmt.Fprintf(&master, `<p:sldMaster xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawing, nsRelationships, nsPresentation)
	master.WriteString(`<p:cSld>` + emptySpTree + `</p:cSld>`)
	master.WriteString(`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`)
	master.WriteString(`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>`)
	master.WriteString(`</p:sldMaster>`)
	if err := pw.writePart("ppt/slideMasters/slideMaster1.xml", master.String()); err != nil {
		return err
	}
	if err := pw.writeRels("ppt/slideMasters/_rels/slideMaster1.xml.rels", []relationship{
		{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		{ID: "rId2", Type: relTypeTheme, Target: "../theme/theme1.xml"},
	}); err != nil {
		return err
	}

	var layout strings.Builder
	fmt.Fprintf(&layout, `<p:sldLayout xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" type="blank">`, nsDrawing, nsRelationships, nsPresentation)
	layout.WriteString(`<p:cSld>` + emptySpTree + `</p:cSld>`)
	layout.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	layout.WriteString(`</p:sldLayout>`)
	if err := pw.writePart("ppt/slideLayouts/slideLayout1.xml", layout.String()); err != nil {
		return err
	}
	return pw.writeRels("ppt/slideLayouts/_rels/slideLayout1.xml.rels", []relationship{
		{ID: "rId1", Type: relTypeSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
	})
}

func (pw *pptxWriter) writeNotesMaster() error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:notesMaster xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawing, nsRelationships, nsPresentation)
	sb.WriteString(`<p:cSld>` + emptySpTree + `</p:cSld>`)
	sb.WriteString(`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`)
	sb.WriteString(`</p:notesMaster>`)
	if err := pw.writePart("ppt/notesMasters/notesMaster1.xml", sb.String()); err != nil {
		return err
	}
	return pw.writeRels("ppt/notesMasters/_rels/notesMaster1.xml.rels", []relationship{
		{ID: "rId1", Type: relTypeTheme, Target: "../theme/theme1.xml"},
	})
}

func (pw *pptxWriter) writeSlide(num int, slide *Slide) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawing, nsRelationships, nsPresentation)
	sb.WriteString(`<p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)

	rels := []relationship{
		{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
	}
	nextRel := 2
	shapeID := 2

	// Shapes の並び順（先頭が最背面）のまま書き出すことで重なり順を再現する
	for _, shape := range slide.Shapes {
		switch sh := shape.(type) {
		case *AutoShape:
			writeAutoShape(&sb, shapeID, sh)
		case *TextBox:
			writeTextBox(&sb, shapeID, sh)
		case *Table:
			writeTable(&sb, shapeID, sh)
		case *Picture:
			pw.mediaCount++
			ext := "png"
			if sh.MimeType == "image/jpeg" {
				ext = "jpeg"
			}
			mediaName := fmt.Sprintf("image%d.%s", pw.mediaCount, ext)
			if err := pw.writeBinaryPart("ppt/media/"+mediaName, sh.Data); err != nil {
				return err
			}
			relID := fmt.Sprintf("rId%d", nextRel)
			rels = append(rels, relationship{ID: relID, Type: relTypeImage, Target: "../media/" + mediaName})
			nextRel++
			writePicture(&sb, shapeID, relID, sh)
		default:
			return fmt.Errorf("未知の図形型です: %T", shape)
		}
		shapeID++
	}

	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:sld>`)

	if slide.Notes != "" {
		notesRel := fmt.Sprintf("rId%d", nextRel)
		rels = append(rels, relationship{ID: notesRel, Type: relTypeNotesSlide, Target: fmt.Sprintf("../notesSlides/notesSlide%d.xml", num)})
		if err := pw.writeNotesSlide(num, slide.Notes); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("ppt/slides/slide%d.xml", num)
	if err := pw.writePart(name, sb.String()); err != nil {
		return err
	}
	return pw.writeRels(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", num), rels)
}

func (pw *pptxWriter) writeNotesSlide(num int, notes string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:notes xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawing, nsRelationships, nsPresentation)
	sb.WriteString(`<p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
	sb.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Notes Placeholder"/>`)
	sb.WriteString(`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>`)
	sb.WriteString(`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, line := range strings.Split(notes, "\n") {
		sb.WriteString(`<a:p><a:r><a:rPr lang="en-US"/><a:t>` + escapeXML(line) + `</a:t></a:r></a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:notes>`)

	if err := pw.writePart(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", num), sb.String()); err != nil {
		return err
	}
	return pw.writeRels(fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", num), []relationship{
		{ID: "rId1", Type: relTypeNotesMaster, Target: "../notesMasters/notesMaster1.xml"},
		{ID: "rId2", Type: relTypeSlide, Target: fmt.Sprintf("../slides/slide%d.xml", num)},
	})
}

func writeXfrm(sb *strings.Builder, box Rect) {
	fmt.Fprintf(sb, `<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, box.Left, box.Top, box.Width, box.Height)
}

func writeAutoShape(sb *strings.Builder, id int, sh *AutoShape) {
	prst := "rect"
	switch sh.Kind {
	case KindRoundedRectangle:
		prst = "roundRect"
	case KindOval:
		prst = "ellipse"
	}

	fmt.Fprintf(sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr>`, id, id)
	writeXfrm(sb, sh.Box)
	fmt.Fprintf(sb, `<a:prstGeom prst="%s"><a:avLst/></a:prstGeom>`, prst)
	if sh.Fill != nil {
		fmt.Fprintf(sb, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, sh.Fill.Hex())
	} else {
		sb.WriteString(`<a:noFill/>`)
	}
	if sh.LineColor != nil {
		fmt.Fprintf(sb, `<a:ln w="%d"><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:ln>`, FromPoints(sh.LineWidthPt), sh.LineColor.Hex())
	} else {
		sb.WriteString(`<a:ln><a:noFill/></a:ln>`)
	}
	sb.WriteString(`</p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`)
}

func writeTextBox(sb *strings.Builder, id int, sh *TextBox) {
	fmt.Fprintf(sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr>`, id, id)
	writeXfrm(sb, sh.Box)
	sb.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`)

	wrap := "none"
	if sh.WordWrap {
		wrap = "square"
	}
	fmt.Fprintf(sb, `<p:txBody><a:bodyPr wrap="%s"/><a:lstStyle/>`, wrap)
	for _, para := range sh.Paragraphs {
		writeParagraph(sb, para)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
}

func writeParagraph(sb *strings.Builder, para Paragraph) {
	sb.WriteString(`<a:p><a:pPr`)
	if para.Level > 0 {
		fmt.Fprintf(sb, ` lvl="%d"`, para.Level)
	}
	sb.WriteString(` algn="l">`)
	if para.SpaceBeforePt > 0 {
		fmt.Fprintf(sb, `<a:spcBef><a:spcPts val="%d"/></a:spcBef>`, int(para.SpaceBeforePt*100))
	}
	if para.SpaceAfterPt > 0 {
		fmt.Fprintf(sb, `<a:spcAft><a:spcPts val="%d"/></a:spcAft>`, int(para.SpaceAfterPt*100))
	}
	sb.WriteString(`</a:pPr>`)
	for _, run := range para.Runs {
		writeRun(sb, run)
	}
	sb.WriteString(`</a:p>`)
}

func writeRun(sb *strings.Builder, run Run) {
	sb.WriteString(`<a:r><a:rPr lang="en-US"`)
	if run.Font.SizePt > 0 {
		fmt.Fprintf(sb, ` sz="%d"`, int(run.Font.SizePt*100))
	}
	if run.Font.Bold {
		sb.WriteString(` b="1"`)
	}
	sb.WriteString(`>`)
	fmt.Fprintf(sb, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, run.Font.Color.Hex())
	if run.Font.Name != "" {
		fmt.Fprintf(sb, `<a:latin typeface="%s"/>`, escapeXML(run.Font.Name))
	}
	sb.WriteString(`</a:rPr>`)
	sb.WriteString(`<a:t>` + escapeXML(run.Text) + `</a:t></a:r>`)
}

func writeTable(sb *strings.Builder, id int, table *Table) {
	cols := table.Columns()
	rows := len(table.Grid)
	if cols == 0 || rows == 0 {
		return
	}

	fmt.Fprintf(sb, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table %d"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, id, id)
	fmt.Fprintf(sb, `<p:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm>`, table.Box.Left, table.Box.Top, table.Box.Width, table.Box.Height)
	sb.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">`)
	sb.WriteString(`<a:tbl><a:tblPr firstRow="1" bandRow="1"/><a:tblGrid>`)

	colWidth := int64(table.Box.Width) / int64(cols)
	for c := 0; c < cols; c++ {
		fmt.Fprintf(sb, `<a:gridCol w="%d"/>`, colWidth)
	}
	sb.WriteString(`</a:tblGrid>`)

	rowHeight := int64(table.Box.Height) / int64(rows)
	for _, row := range table.Grid {
		fmt.Fprintf(sb, `<a:tr h="%d">`, rowHeight)
		for _, cell := range row {
			sb.WriteString(`<a:tc><a:txBody><a:bodyPr/><a:lstStyle/><a:p>`)
			writeRun(sb, Run{Text: cell.Text, Font: cell.Font})
			sb.WriteString(`</a:p></a:txBody><a:tcPr`)
			if cell.Fill != nil {
				fmt.Fprintf(sb, `><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:tcPr>`, cell.Fill.Hex())
			} else {
				sb.WriteString(`/>`)
			}
			sb.WriteString(`</a:tc>`)
		}
		sb.WriteString(`</a:tr>`)
	}

	sb.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
}

func writePicture(sb *strings.Builder, id int, relID string, pic *Picture) {
	fmt.Fprintf(sb, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`, id, id)
	fmt.Fprintf(sb, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`, relID)
	sb.WriteString(`<p:spPr>`)
	writeXfrm(sb, pic.Box)
	sb.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`)
}

// escapeXML はテキストノード・属性値向けのエスケープを行います。
func escapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
