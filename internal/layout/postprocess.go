package layout

import "sort"

// detection in model input coordinates, xyxy.
type detection struct {
	x0, y0, x1, y1 float64
	confidence     float64
	class          int
}

const (
	confThreshold = 0.25
	iouThreshold  = 0.45
	detStride     = 6 // x0, y0, x1, y1, score, class
)

// decodeDetections parses the raw [N*6] model output, drops weak boxes
// and suppresses overlapping ones.
func decodeDetections(raw []float32) []detection {
	var dets []detection
	for i := 0; i+detStride <= len(raw); i += detStride {
		conf := float64(raw[i+4])
		if conf < confThreshold {
			continue
		}
		dets = append(dets, detection{
			x0:         float64(raw[i]),
			y0:         float64(raw[i+1]),
			x1:         float64(raw[i+2]),
			y1:         float64(raw[i+3]),
			confidence: conf,
			class:      int(raw[i+5]),
		})
	}
	return nms(dets)
}

// nms keeps the strongest box of each overlapping same-class cluster.
func nms(dets []detection) []detection {
	sort.Slice(dets, func(i, j int) bool {
		return dets[i].confidence > dets[j].confidence
	})

	var kept []detection
	suppressed := make([]bool, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		kept = append(kept, dets[i])
		for j := i + 1; j < len(dets); j++ {
			if suppressed[j] || dets[j].class != dets[i].class {
				continue
			}
			if iou(dets[i], dets[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b detection) float64 {
	ix0 := max64(a.x0, b.x0)
	iy0 := max64(a.y0, b.y0)
	ix1 := min64(a.x1, b.x1)
	iy1 := min64(a.y1, b.y1)

	iw := ix1 - ix0
	ih := iy1 - iy0
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	areaA := (a.x1 - a.x0) * (a.y1 - a.y0)
	areaB := (b.x1 - b.x0) * (b.y1 - b.y0)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
