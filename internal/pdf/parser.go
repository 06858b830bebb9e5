package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Parser 解析 PDF 并按行合并出文本块。
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// GetInfo returns page count, file size and whether the document carries
// an extractable text layer.
func (p *Parser) GetInfo(path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewError(ErrNotFound, "pdf file not found", err)
		}
		return nil, NewError(ErrInvalid, "cannot access pdf file", err)
	}
	if stat.IsDir() {
		return nil, NewError(ErrInvalid, "path is a directory", nil)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, NewError(ErrInvalid, "cannot open pdf file", err)
	}
	defer f.Close()

	isText, err := p.hasTextLayer(r)
	if err != nil {
		isText = false
	}

	return &Info{
		FilePath:  path,
		FileName:  filepath.Base(path),
		PageCount: r.NumPage(),
		FileSize:  stat.Size(),
		IsTextPDF: isText,
	}, nil
}

// IsTextPDF reports whether the document has enough extractable text to
// translate. Scanned documents come back false.
func (p *Parser) IsTextPDF(path string) (bool, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return false, NewError(ErrInvalid, "cannot open pdf file", err)
	}
	defer f.Close()
	return p.hasTextLayer(r)
}

// hasTextLayer samples the first few pages and counts non-whitespace runes.
func (p *Parser) hasTextLayer(r *pdf.Reader) (bool, error) {
	sample := 3
	if r.NumPage() < sample {
		sample = r.NumPage()
	}

	runes := 0
	for pageNum := 1; pageNum <= sample; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, c := range content {
			if !unicode.IsSpace(c) {
				runes++
			}
		}
		if runes > 50 {
			return true, nil
		}
	}
	return runes > 0, nil
}

// ExtractBlocks 提取 pages 指定页（nil 表示全部页）的文本块，
// 按阅读顺序（页内自上而下、同行自左向右）返回。
func (p *Parser) ExtractBlocks(path string, pages []int) ([]TextBlock, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, NewError(ErrInvalid, "cannot open pdf file", err)
	}
	defer f.Close()

	wanted := make(map[int]bool, len(pages))
	for _, n := range pages {
		wanted[n] = true
	}

	var blocks []TextBlock
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		if len(wanted) > 0 && !wanted[pageNum] {
			continue
		}
		page := r.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// 单页解析失败不中断整个文档
			continue
		}

		for _, row := range rows {
			if block, ok := mergeRow(pageNum, row); ok {
				blocks = append(blocks, block)
			}
		}
	}

	sortReadingOrder(blocks)
	for i := range blocks {
		blocks[i].ID = fmt.Sprintf("block_%d", i+1)
	}
	return blocks, nil
}

// mergeRow collapses one text row into a block, dropping operator junk.
func mergeRow(pageNum int, row *pdf.Row) (TextBlock, bool) {
	var (
		sb            strings.Builder
		minX, maxX    float64
		minY          float64
		fontSizeTotal float64
		fontName      string
		count         int
	)

	for _, t := range row.Content {
		if t.S == "" || looksLikeOperatorCode(t.S) {
			continue
		}
		sb.WriteString(t.S)

		if count == 0 {
			minX, maxX, minY = t.X, t.X, t.Y
			fontName = t.Font
		} else {
			if t.X < minX {
				minX = t.X
			}
			if t.X > maxX {
				maxX = t.X
			}
			if t.Y < minY {
				minY = t.Y
			}
		}
		fontSizeTotal += t.FontSize
		count++
	}

	text := strings.TrimSpace(sb.String())
	if text == "" || count == 0 {
		return TextBlock{}, false
	}
	if looksLikeOperatorCode(text) || mostlyUnprintable(text) {
		return TextBlock{}, false
	}

	fontSize := fontSizeTotal / float64(count)
	if fontSize <= 0 {
		fontSize = 10
	}

	// Width from glyph positions where available, rough estimate otherwise.
	width := maxX - minX + fontSize
	if est := float64(len([]rune(text))) * fontSize * 0.5; est > width {
		width = est
	}

	return TextBlock{
		Page:     pageNum,
		Text:     text,
		X:        minX,
		Y:        minY,
		Width:    width,
		Height:   fontSize * 1.2,
		FontSize: fontSize,
		FontName: fontName,
		Kind:     classifyBlock(text, fontSize, fontName),
	}, true
}

// sortReadingOrder sorts by page, then top-to-bottom (descending Y in PDF
// coordinates), then left-to-right within a line.
func sortReadingOrder(blocks []TextBlock) {
	const lineTolerance = 5.0
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Page != blocks[j].Page {
			return blocks[i].Page < blocks[j].Page
		}
		dy := blocks[i].Y - blocks[j].Y
		if dy > -lineTolerance && dy < lineTolerance {
			return blocks[i].X < blocks[j].X
		}
		return blocks[i].Y > blocks[j].Y
	})
}

// looksLikeOperatorCode flags PostScript/PDF operator text that some
// documents leak into the extractable layer.
func looksLikeOperatorCode(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)

	if strings.Contains(text, "/") && (strings.Contains(text, " def ") || strings.HasSuffix(text, " def")) {
		return true
	}
	for _, op := range []string{"gsave", "grestore", "setrgbcolor", "showpage", "currentpoint", "moveto", "lineto"} {
		if strings.Contains(lower, op) {
			return true
		}
	}

	// Several /Name tokens in a row is operator syntax, not prose.
	if !strings.Contains(lower, "http") {
		names := 0
		for _, word := range strings.Fields(text) {
			if len(word) > 1 && word[0] == '/' && isIdentifier(word[1:]) {
				names++
			}
		}
		if names >= 3 {
			return true
		}
	}
	return false
}

func isIdentifier(s string) bool {
	for _, c := range s {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '@' {
			return false
		}
	}
	return s != ""
}

func mostlyUnprintable(text string) bool {
	bad := 0
	total := 0
	for _, r := range text {
		total++
		if (r < 32 && r != '\n' && r != '\r' && r != '\t') || (r >= 0x7F && r <= 0x9F) {
			bad++
		}
	}
	return total > 0 && float64(bad)/float64(total) > 0.1
}

// classifyBlock assigns a coarse kind used by the pipeline to decide what
// gets translated and what stays verbatim.
func classifyBlock(text string, fontSize float64, fontName string) string {
	lower := strings.ToLower(text)

	if looksLikeFormula(text) {
		return KindFormula
	}

	for _, prefix := range []string{"figure", "fig.", "table", "tab.", "图", "表"} {
		if strings.HasPrefix(lower, prefix) {
			return KindCaption
		}
	}

	bold := strings.Contains(strings.ToLower(fontName), "bold")
	short := len(text) < 100
	if short && (bold || fontSize > 12) && !strings.HasSuffix(text, ".") {
		return KindHeading
	}
	if isNumberedHeading(text) {
		return KindHeading
	}

	if len(text) < 200 && len(text) > 1 && text[0] >= '0' && text[0] <= '9' &&
		strings.Contains(text, ".") && !strings.HasSuffix(text, ".") {
		return KindFootnote
	}

	return KindParagraph
}

const mathSymbols = "∫∑∏√∂∇±×÷≤≥≠≈∞∈∉⊂⊃∪∩∧∨αβγδεζηθικλμνξπρστυφχψω"

func looksLikeFormula(text string) bool {
	if strings.ContainsAny(text, "∫∑∏√∂∇") {
		return true
	}

	symbols := 0
	total := 0
	for _, r := range text {
		total++
		switch {
		case strings.ContainsRune("+-*/=<>^_~()[]{}", r):
			symbols++
		case strings.ContainsRune(mathSymbols, r):
			symbols++
		}
	}
	if total > 0 && float64(symbols)/float64(total) > 0.3 {
		return true
	}

	// Short "x = f(y)" style lines.
	if strings.Contains(text, "=") && len(text) < 100 && len(strings.Fields(text)) <= 5 {
		if strings.ContainsAny(text, "(+-") {
			return true
		}
	}
	return false
}

func isNumberedHeading(text string) bool {
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 12 {
		return false
	}
	head := fields[0]
	// "3", "3.", "3.1", "3.1.2"
	digits := 0
	for _, c := range head {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
		default:
			return false
		}
	}
	return digits > 0 && len(text) < 120
}
