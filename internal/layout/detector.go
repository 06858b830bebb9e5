package layout

import (
	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// NewDetector picks the best available detector: the ONNX model when
// configured and loadable, text heuristics otherwise.
func NewDetector(cfg *config.LayoutConfig, log logger.Logger) Detector {
	if cfg.ModelPath != "" {
		detector, err := NewONNXDetector(cfg.ModelPath, cfg.SharedLibPath, NewRasterizer(cfg.Rasterizer), log)
		if err == nil {
			return detector
		}
		log.Warn("falling back to rule-based layout detection", logger.Error(err))
	}
	return NewRuleBasedDetector(log)
}
