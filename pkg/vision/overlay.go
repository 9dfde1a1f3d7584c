package vision

import (
	"image"
	"image/color"
	"math"

	"github.com/teslashibe/go-turret/pkg/tracking"
)

// Overlay colours
var (
	BoxColor  = color.RGBA{R: 255, A: 255}
	DotColor  = color.RGBA{R: 255, A: 255}
	GridColor = color.RGBA{R: 64, G: 64, B: 64, A: 255}
)

// Segment is one debug grid line.
type Segment struct {
	From, To image.Point
}

// MinFaceSize returns the smallest face edge to look for in a frame of the
// given height.
func MinFaceSize(rows int, portion float64) int {
	return int(math.Round(float64(rows) * portion))
}

// SnapRect returns the box with both corners truncated onto the grid.
func SnapRect(b tracking.Box, spacing int) image.Rectangle {
	x0, y0 := b.X/spacing*spacing, b.Y/spacing*spacing
	x1, y1 := (b.X+b.Width)/spacing*spacing, (b.Y+b.Height)/spacing*spacing
	return image.Rect(x0, y0, x1, y1)
}

// GridLines returns the vertical then horizontal guide lines for a
// cols x rows frame. Lines span whole cells only and the last cell gets no
// closing line.
func GridLines(cols, rows, spacing int) []Segment {
	if spacing <= 0 {
		return nil
	}
	width, height := cols/spacing, rows/spacing
	nx, ny := width-1, height-1
	if nx < 0 {
		nx = 0
	}
	if ny < 0 {
		ny = 0
	}

	lines := make([]Segment, 0, nx+ny)
	for i := 0; i < nx; i++ {
		x := i * spacing
		lines = append(lines, Segment{From: image.Pt(x, 0), To: image.Pt(x, height*spacing)})
	}
	for i := 0; i < ny; i++ {
		y := i * spacing
		lines = append(lines, Segment{From: image.Pt(0, y), To: image.Pt(width*spacing, y)})
	}
	return lines
}
