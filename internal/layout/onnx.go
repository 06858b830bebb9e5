package layout

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// modelInputSize DocLayout-YOLO 的标准输入边长
const modelInputSize = 1024

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime(sharedLib string) error {
	ortInitOnce.Do(func() {
		if sharedLib != "" {
			ort.SetSharedLibraryPath(sharedLib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXDetector runs the DocLayout-YOLO model through onnxruntime.
type ONNXDetector struct {
	session    *ort.DynamicAdvancedSession
	rasterizer *Rasterizer
	log        logger.Logger

	mu sync.Mutex // onnxruntime sessions are not safe for concurrent Run
}

// NewONNXDetector loads the model at modelPath. sharedLib points at the
// onnxruntime shared library; empty uses the system default.
func NewONNXDetector(modelPath, sharedLib string, rasterizer *Rasterizer, log logger.Logger) (*ONNXDetector, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("model path not specified")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if !rasterizer.Available() {
		return nil, fmt.Errorf("rasterizer %q not found on PATH", rasterizer.tool)
	}

	if err := initRuntime(sharedLib); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"images"}, []string{"output0"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	log.Info("layout model loaded", logger.String("model", modelPath))
	return &ONNXDetector{
		session:    session,
		rasterizer: rasterizer,
		log:        log,
	}, nil
}

func (d *ONNXDetector) DetectPage(ctx context.Context, pdfPath string, page int) ([]Element, error) {
	img, err := d.rasterizer.RenderPage(ctx, pdfPath, page)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w", page, err)
	}

	data, lb := preprocess(img, modelInputSize)

	input, err := ort.NewTensor(ort.NewShape(1, 3, modelInputSize, modelInputSize), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	d.mu.Lock()
	err = d.session.Run([]ort.Value{input}, outputs)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed on page %d: %w", page, err)
	}
	output := outputs[0].(*ort.Tensor[float32])
	defer output.Destroy()

	dets := decodeDetections(output.GetData())

	// Detections live in model input pixels. Map back through the
	// letterbox to image pixels, then to PDF points with the page size.
	dims, err := api.PageDimsFile(pdfPath)
	if err != nil || page > len(dims) {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	pageW := dims[page-1].Width
	pageH := dims[page-1].Height
	pxPerPt := float64(img.Bounds().Dx()) / pageW

	elements := make([]Element, 0, len(dets))
	for _, det := range dets {
		if det.class < 0 || det.class >= len(classNames) {
			continue
		}
		x0 := lb.toPagePixels(det.x0, lb.padX) / pxPerPt
		x1 := lb.toPagePixels(det.x1, lb.padX) / pxPerPt
		y0 := lb.toPagePixels(det.y0, lb.padY) / pxPerPt
		y1 := lb.toPagePixels(det.y1, lb.padY) / pxPerPt

		// 图像坐标原点在左上，PDF 在左下，翻转 Y 轴
		elements = append(elements, Element{
			Type: classNames[det.class],
			BoundingBox: BoundingBox{
				X:      x0,
				Y:      pageH - y1,
				Width:  x1 - x0,
				Height: y1 - y0,
			},
			Confidence: det.confidence,
			Page:       page,
		})
	}

	d.log.Debug("layout detected",
		logger.Int("page", page),
		logger.Int("elements", len(elements)))
	return elements, nil
}

func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session.Destroy()
}
