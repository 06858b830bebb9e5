// Package layout detects the structural elements of a document page
// (paragraphs, figures, tables, formulas) with a DocLayout-YOLO ONNX
// model, falling back to text heuristics when no model is available.
package layout

import "context"

// ElementType DocLayout-YOLO 的类别名
type ElementType string

const (
	ElementTitle          ElementType = "title"
	ElementPlainText      ElementType = "plain text"
	ElementAbandon        ElementType = "abandon"
	ElementFigure         ElementType = "figure"
	ElementFigureCaption  ElementType = "figure_caption"
	ElementTable          ElementType = "table"
	ElementTableCaption   ElementType = "table_caption"
	ElementTableFootnote  ElementType = "table_footnote"
	ElementIsolateFormula ElementType = "isolate_formula"
	ElementFormulaCaption ElementType = "formula_caption"
)

// classNames indexes the model's class ids.
var classNames = []ElementType{
	ElementTitle,
	ElementPlainText,
	ElementAbandon,
	ElementFigure,
	ElementFigureCaption,
	ElementTable,
	ElementTableCaption,
	ElementTableFootnote,
	ElementIsolateFormula,
	ElementFormulaCaption,
}

// maskTypes 落在这些区域内的文本不送翻译，原样保留。
var maskTypes = map[ElementType]bool{
	ElementAbandon:        true,
	ElementFigure:         true,
	ElementTable:          true,
	ElementIsolateFormula: true,
	ElementFormulaCaption: true,
}

// Masked reports whether text inside this element stays untranslated.
func Masked(t ElementType) bool {
	return maskTypes[t]
}

// BoundingBox in page coordinates, origin at the bottom left.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point (x, y) falls inside the box.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// Element 单个版面元素
type Element struct {
	Type        ElementType `json:"type"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Page        int         `json:"page"`
}

// Detector 版面检测接口
type Detector interface {
	// DetectPage returns the layout elements of one page (1-based).
	DetectPage(ctx context.Context, pdfPath string, page int) ([]Element, error)
	// Close releases model resources.
	Close() error
}
