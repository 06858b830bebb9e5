package config

import "sync"

var (
	layoutOnce   sync.Once
	layoutConfig *LayoutConfig
)

// LayoutConfig DocLayout-YOLO 模型配置
type LayoutConfig struct {
	ModelPath     string // ONNX 模型文件路径，为空时禁用模型推理
	SharedLibPath string // onnxruntime 动态库路径
	Rasterizer    string // 页面渲染工具，默认 pdftoppm
}

// GetLayoutConfig 获取版面分析配置
func GetLayoutConfig() *LayoutConfig {
	layoutOnce.Do(func() {
		loadEnv()
		layoutConfig = &LayoutConfig{
			ModelPath:     getEnv("DOCLAYOUT_MODEL_PATH", ""),
			SharedLibPath: getEnv("ONNX_SHARED_LIB", ""),
			Rasterizer:    getEnv("PDF_RASTERIZER", "pdftoppm"),
		}
	})
	return layoutConfig
}
