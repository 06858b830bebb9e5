package layout

import (
	"context"

	"github.com/pdf2zh/pdf2zh/internal/pdf"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// RuleBasedDetector derives layout elements from the text blocks the
// parser already produces. Less accurate than the model, but it works
// without onnxruntime or a rendering tool.
type RuleBasedDetector struct {
	parser *pdf.Parser
	log    logger.Logger
}

func NewRuleBasedDetector(log logger.Logger) *RuleBasedDetector {
	return &RuleBasedDetector{parser: pdf.NewParser(), log: log}
}

func (d *RuleBasedDetector) DetectPage(_ context.Context, pdfPath string, page int) ([]Element, error) {
	blocks, err := d.parser.ExtractBlocks(pdfPath, []int{page})
	if err != nil {
		return nil, err
	}

	elements := make([]Element, 0, len(blocks))
	for _, b := range blocks {
		elements = append(elements, Element{
			Type: kindToElement(b.Kind),
			BoundingBox: BoundingBox{
				X:      b.X,
				Y:      b.Y,
				Width:  b.Width,
				Height: b.Height,
			},
			Confidence: 0.5,
			Page:       page,
		})
	}
	return elements, nil
}

func (d *RuleBasedDetector) Close() error { return nil }

func kindToElement(kind string) ElementType {
	switch kind {
	case pdf.KindHeading:
		return ElementTitle
	case pdf.KindCaption:
		return ElementFigureCaption
	case pdf.KindFormula:
		return ElementIsolateFormula
	case pdf.KindFootnote:
		return ElementTableFootnote
	default:
		return ElementPlainText
	}
}
