package onnx

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/model-compare/detector"
	"gorgonia.org/tensor"
)

// Candidate is a decoded box before suppression, in source image pixels.
type Candidate struct {
	X1, Y1, X2, Y2 float32
	Score          float32
	Class          int
}

// Rect converts the candidate to an integral rectangle.
func (c Candidate) Rect() image.Rectangle {
	return image.Rect(int(c.X1), int(c.Y1), int(c.X2), int(c.Y2)).Canon()
}

// Detection converts the candidate to a detector.Detection.
func (c Candidate) Detection() detector.Detection {
	return detector.Detection{Class: c.Class, Score: c.Score, Box: c.Rect()}
}

// IoU returns the intersection over union of two candidates.
func (c Candidate) IoU(o Candidate) float32 {
	w := math32.Min(c.X2, o.X2) - math32.Max(c.X1, o.X1)
	h := math32.Min(c.Y2, o.Y2) - math32.Max(c.Y1, o.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := w * h
	union := (c.X2-c.X1)*(c.Y2-c.Y1) + (o.X2-o.X1)*(o.Y2-o.Y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Candidates decodes a YOLO output tensor into thresholded boxes.
//
// Two layouts are understood, told apart by which axis is longer:
//   - (1, 4+C, N): channel-first predictions without objectness (YOLOv8).
//   - (1, N, 5+C): one row per prediction with objectness at index 4 (YOLOv5).
//
// Arguments:
//   - output: The raw output tensor data.
//   - shape: The output tensor shape.
//   - src: The source image size boxes are scaled to.
//   - cfg: Input size and confidence threshold.
//
// Returns:
//   - []Candidate: Boxes scoring at least cfg.Confidence, in prediction order.
//   - error: An error if the shape is not a known YOLO layout.
func Candidates(output []float32, shape []int64, src image.Point, cfg Config) ([]Candidate, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unsupported output shape %v", shape)
	}
	a, b := int(shape[1]), int(shape[2])
	if len(output) < a*b {
		return nil, fmt.Errorf("output holds %d floats, shape %v needs %d", len(output), shape, a*b)
	}

	channelFirst := a < b
	rows, cols, offset := a, b, 5
	data := output[:a*b]
	if channelFirst {
		rows, cols, offset = b, a, 4
		t := tensor.New(tensor.WithShape(a, b), tensor.WithBacking(append([]float32(nil), data...)))
		if err := t.T(); err != nil {
			return nil, fmt.Errorf("failed to transpose output: %w", err)
		}
		if err := t.Transpose(); err != nil {
			return nil, fmt.Errorf("failed to transpose output: %w", err)
		}
		data = t.Data().([]float32)
	}
	if cols <= offset {
		return nil, fmt.Errorf("output shape %v has no class scores", shape)
	}

	sx := float32(src.X) / float32(cfg.InputSize)
	sy := float32(src.Y) / float32(cfg.InputSize)

	var candidates []Candidate
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]

		class, score := 0, float32(-1)
		for c, p := range row[offset:] {
			if p > score {
				class, score = c, p
			}
		}
		if !channelFirst {
			score *= row[4]
		}
		if score < cfg.Confidence {
			continue
		}

		xc, yc, w, h := row[0], row[1], row[2], row[3]
		candidates = append(candidates, Candidate{
			X1:    (xc - w/2) * sx,
			Y1:    (yc - h/2) * sy,
			X2:    (xc + w/2) * sx,
			Y2:    (yc + h/2) * sy,
			Score: score,
			Class: class,
		})
	}

	return candidates, nil
}

// Suppress applies greedy class-aware non-maximum suppression.
//
// Returns:
//   - []Candidate: The kept candidates, highest score first.
func Suppress(candidates []Candidate, iou float32) []Candidate {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		overlaps := false
		for _, k := range kept {
			if k.Class == c.Class && c.IoU(k) > iou {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

// ClassRects returns the candidates' rectangles shifted so that boxes of
// different classes never overlap. Running class-agnostic suppression over
// them keeps suppression per class.
func ClassRects(candidates []Candidate) []image.Rectangle {
	rects := make([]image.Rectangle, len(candidates))
	if len(candidates) == 0 {
		return rects
	}

	lo, hi := math.MaxInt, math.MinInt
	for i, c := range candidates {
		rects[i] = c.Rect()
		lo = min(lo, rects[i].Min.X, rects[i].Min.Y)
		hi = max(hi, rects[i].Max.X, rects[i].Max.Y)
	}

	span := hi - lo + 1
	for i, c := range candidates {
		shift := c.Class * span
		rects[i] = rects[i].Add(image.Pt(shift, shift))
	}
	return rects
}

// Decode turns a YOLO output tensor into suppressed detections.
func Decode(output []float32, shape []int64, src image.Point, cfg Config) ([]detector.Detection, error) {
	candidates, err := Candidates(output, shape, src, cfg)
	if err != nil {
		return nil, err
	}

	kept := Suppress(candidates, cfg.IoU)
	detections := make([]detector.Detection, len(kept))
	for i, c := range kept {
		detections[i] = c.Detection()
	}
	return detections, nil
}
