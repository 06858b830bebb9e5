package layout

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// rasterDPI 渲染分辨率。DocLayout-YOLO 在 ~150dpi 的页面图上训练。
const rasterDPI = 144

// Rasterizer renders one PDF page to an image with an external tool
// (pdftoppm by default).
type Rasterizer struct {
	tool string
}

func NewRasterizer(tool string) *Rasterizer {
	if tool == "" {
		tool = "pdftoppm"
	}
	return &Rasterizer{tool: tool}
}

// Available reports whether the rendering tool is on PATH.
func (r *Rasterizer) Available() bool {
	_, err := exec.LookPath(r.tool)
	return err == nil
}

// RenderPage rasterizes the given page (1-based) to a PNG and loads it.
func (r *Rasterizer) RenderPage(ctx context.Context, pdfPath string, page int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "pdf2zh-raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.tool,
		"-png",
		"-r", fmt.Sprintf("%d", rasterDPI),
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", r.tool, err, out)
	}

	// pdftoppm 输出 page-1.png / page-01.png，位数取决于总页数
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no rendered page found for page %d", page)
	}

	img, err := imaging.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load rendered page: %w", err)
	}
	return img, nil
}
