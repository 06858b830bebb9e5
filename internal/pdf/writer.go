package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// Writer 在原 PDF 上覆盖译文，重建版面。
// mono 输出只含译文页，dual 输出原文页与译文页交错。
type Writer struct {
	fontName string
	conf     *model.Configuration
	log      logger.Logger
}

// NewWriter creates a Writer. fontName may be a pdfcpu built-in font name
// or a path to a TTF usable for CJK output; empty selects Helvetica.
func NewWriter(fontName string, log logger.Logger) *Writer {
	if fontName == "" {
		fontName = "Helvetica"
	}
	return &Writer{
		fontName: fontName,
		conf:     model.NewDefaultConfiguration(),
		log:      log,
	}
}

// WriteMono copies the original to outputPath and overlays every
// translated block in place.
func (w *Writer) WriteMono(originalPath, outputPath string, blocks []TranslatedBlock) error {
	if err := copyFile(originalPath, outputPath); err != nil {
		return NewError(ErrGenerateFailed, "failed to stage output pdf", err)
	}

	byPage := make(map[int][]TranslatedBlock)
	for _, b := range blocks {
		if strings.TrimSpace(b.TranslatedText) == "" {
			continue
		}
		byPage[b.Page] = append(byPage[b.Page], b)
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, page := range pages {
		for _, b := range byPage[page] {
			if err := w.overlayBlock(outputPath, page, b); err != nil {
				// 单块失败不放弃整页
				w.log.Warn("failed to overlay block",
					logger.String("block", b.ID),
					logger.Int("page", page),
					logger.Error(err))
			}
		}
	}
	return nil
}

// WriteDual interleaves original and translated pages: for every page n
// the output carries the original page followed by the translated one.
func (w *Writer) WriteDual(originalPath, monoPath, outputPath string) error {
	workDir, err := os.MkdirTemp("", "pdf2zh-dual-")
	if err != nil {
		return NewError(ErrGenerateFailed, "failed to create temp dir", err)
	}
	defer os.RemoveAll(workDir)

	origDir := filepath.Join(workDir, "orig")
	monoDir := filepath.Join(workDir, "mono")
	origPages, err := splitPages(originalPath, origDir)
	if err != nil {
		return err
	}
	monoPages, err := splitPages(monoPath, monoDir)
	if err != nil {
		return err
	}
	if len(origPages) != len(monoPages) {
		return NewError(ErrGenerateFailed,
			fmt.Sprintf("page count mismatch: original %d, translated %d", len(origPages), len(monoPages)), nil)
	}

	interleaved := make([]string, 0, len(origPages)*2)
	for i := range origPages {
		interleaved = append(interleaved, origPages[i], monoPages[i])
	}

	if err := api.MergeCreateFile(interleaved, outputPath, false, w.conf); err != nil {
		return NewError(ErrGenerateFailed, "failed to merge dual pdf", err)
	}
	return nil
}

// overlayBlock covers the source text with a white box, then stamps the
// translation at the same position.
func (w *Writer) overlayBlock(path string, page int, block TranslatedBlock) error {
	text := sanitizeOverlayText(block.TranslatedText)
	if text == "" {
		return nil
	}

	fontSize := block.FontSize
	if fontSize <= 0 {
		fontSize = 10
	}
	fontSize = fitFontSize(text, fontSize, block.Width)

	if err := w.coverBox(path, page, block.X, block.Y, block.Width, block.Height); err != nil {
		// The cover box is cosmetic, the stamp still goes on.
		w.log.Debug("cover box failed", logger.Int("page", page), logger.Error(err))
	}

	wm := &model.Watermark{
		Mode:           model.WMText,
		TextString:     text,
		FontName:       w.fontName,
		FontSize:       int(fontSize),
		ScaledFontSize: int(fontSize),
		Color:          color.Black,
		Opacity:        1.0,
		OnTop:          true,
		Pos:            types.TopLeft,
		Dx:             block.X,
		Dy:             block.Y,
	}
	if block.Width > 0 && block.Height > 0 {
		wm.Width = int(block.Width)
		wm.Height = int(block.Height)
	}

	selected := []string{fmt.Sprintf("%d", page)}
	if err := api.AddWatermarksFile(path, "", selected, wm, w.conf); err != nil {
		return NewErrorWithPage(ErrGenerateFailed, "failed to stamp translated text", page, err)
	}
	return nil
}

func (w *Writer) coverBox(path string, page int, x, y, width, height float64) error {
	bg := color.White
	wm := &model.Watermark{
		Mode:       model.WMText,
		TextString: " ",
		BgColor:    &bg,
		Opacity:    1.0,
		OnTop:      true,
		Pos:        types.TopLeft,
		Dx:         x,
		Dy:         y,
		Width:      int(width),
		Height:     int(height),
	}
	selected := []string{fmt.Sprintf("%d", page)}
	return api.AddWatermarksFile(path, "", selected, wm, w.conf)
}

func splitPages(path, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, NewError(ErrGenerateFailed, "failed to create split dir", err)
	}
	if err := api.SplitFile(path, outDir, 1, nil); err != nil {
		return nil, NewError(ErrGenerateFailed, "failed to split pdf", err)
	}
	files, err := filepath.Glob(filepath.Join(outDir, "*.pdf"))
	if err != nil {
		return nil, NewError(ErrGenerateFailed, "failed to list split pages", err)
	}
	// pdfcpu names split pages name_1.pdf .. name_N.pdf; lexical order
	// breaks past page 9, so sort by the numeric suffix.
	sort.Slice(files, func(i, j int) bool {
		return pageIndex(files[i]) < pageIndex(files[j])
	})
	return files, nil
}

func pageIndex(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".pdf")
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return 0
	}
	n := 0
	for _, c := range base[idx+1:] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// sanitizeOverlayText flattens the text to a single stampable line.
func sanitizeOverlayText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, ")", "\\)")
	return text
}

// fitFontSize shrinks the font until the text fits maxWidth. CJK glyphs
// are roughly twice as wide as Latin ones at the same size.
func fitFontSize(text string, size, maxWidth float64) float64 {
	if maxWidth <= 0 {
		return size
	}

	var cjk, latin float64
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			latin++
		}
	}
	estimated := latin*0.5*size + cjk*1.0*size
	if estimated <= maxWidth {
		return size
	}

	adjusted := size * maxWidth / estimated
	const minReadable = 6.0
	if adjusted < minReadable {
		adjusted = minReadable
	}
	return adjusted
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
