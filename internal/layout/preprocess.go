package layout

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// letterbox holds how a page image was fitted into the model input so
// detections can be mapped back to page pixels.
type letterbox struct {
	scale float64
	padX  int
	padY  int
}

// preprocess letterboxes img into a size×size gray canvas and converts
// it to a CHW float32 tensor with values in [0, 1].
func preprocess(img image.Image, size int) ([]float32, letterbox) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	scale := float64(size) / float64(srcW)
	if s := float64(size) / float64(srcH); s < scale {
		scale = s
	}
	newW := int(float64(srcW) * scale)
	newH := int(float64(srcH) * scale)

	resized := imaging.Resize(img, newW, newH, imaging.Linear)

	canvas := imaging.New(size, size, color.NRGBA{R: 114, G: 114, B: 114, A: 255})
	padX := (size - newW) / 2
	padY := (size - newH) / 2
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	data := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := canvas.NRGBAAt(x, y)
			idx := y*size + x
			data[idx] = float32(c.R) / 255.0
			data[plane+idx] = float32(c.G) / 255.0
			data[2*plane+idx] = float32(c.B) / 255.0
		}
	}

	return data, letterbox{scale: scale, padX: padX, padY: padY}
}

// toPagePixels maps letterboxed model coordinates back to the source image.
func (lb letterbox) toPagePixels(x float64, pad int) float64 {
	return (x - float64(pad)) / lb.scale
}
