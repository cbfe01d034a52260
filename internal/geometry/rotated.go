package geometry

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// RotatedBox is ((cx,cy),(w,h),angle) as produced by OpenCV's minAreaRect,
// angle in degrees.
type RotatedBox struct {
	CX, CY float64
	W, H   float64
	Angle  float64
}

// ShorterSide returns min(W, H), the quantity the material engine tracks.
func (r RotatedBox) ShorterSide() float64 {
	return math.Min(r.W, r.H)
}

// MinAreaRectFromMask derives a RotatedBox as the minAreaRect of the largest
// external contour of a binary mask, mirroring cv2.findContours +
// cv2.minAreaRect in the source. Returns ok=false when the mask has no
// contour (an empty mask), which callers must treat as a transient,
// non-fatal absence of geometry for the frame.
func MinAreaRectFromMask(mask gocv.Mat) (RotatedBox, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return RotatedBox{}, false
	}

	largest := contours.At(0)
	largestArea := gocv.ContourArea(largest)
	for i := 1; i < contours.Size(); i++ {
		c := contours.At(i)
		if a := gocv.ContourArea(c); a > largestArea {
			largest = c
			largestArea = a
		}
	}

	rect := gocv.MinAreaRect(largest)
	return RotatedBox{
		CX: rect.Center.X, CY: rect.Center.Y,
		W: float64(rect.Width), H: float64(rect.Height),
		Angle: rect.Angle,
	}, true
}

// corners returns the four corners of the rotated box as an ordered polygon.
func (r RotatedBox) corners() []Point {
	theta := r.Angle * math.Pi / 180.0
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	hw, hh := r.W/2, r.H/2

	local := [4][2]float64{
		{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh},
	}
	pts := make([]Point, 4)
	for i, p := range local {
		x, y := p[0], p[1]
		pts[i] = Point{
			X: r.CX + x*cosT - y*sinT,
			Y: r.CY + x*sinT + y*cosT,
		}
	}
	return pts
}

// RotatedIoU computes the exact intersection-over-union of two rotated
// rectangles via Sutherland-Hodgman polygon clipping. gocv exposes no
// rotated-IoU primitive directly, so the clip/area routine below is
// hand-written; it is pure computational geometry, not a place any
// available third-party library covers.
func RotatedIoU(a, b RotatedBox) float64 {
	aArea := a.W * a.H
	bArea := b.W * b.H
	if aArea <= 0 || bArea <= 0 {
		return 0
	}

	interPoly := clipPolygon(a.corners(), b.corners())
	inter := polygonArea(interPoly)

	union := aArea + bArea - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Point is a 2D point used by the polygon-clipping routines.
type Point struct{ X, Y float64 }

// polygonArea computes the area of a simple polygon via the shoelace formula.
func polygonArea(poly []Point) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(sum) / 2
}

// clipPolygon clips subject against the convex polygon clip using the
// Sutherland-Hodgman algorithm, returning the intersection polygon.
func clipPolygon(subject, clip []Point) []Point {
	output := subject
	n := len(clip)
	for i := 0; i < n && len(output) > 0; i++ {
		a := clip[i]
		b := clip[(i+1)%n]
		input := output
		output = nil

		for j := 0; j < len(input); j++ {
			curr := input[j]
			prev := input[(j-1+len(input))%len(input)]

			currInside := isInside(a, b, curr)
			prevInside := isInside(a, b, prev)

			if currInside {
				if !prevInside {
					output = append(output, lineIntersect(prev, curr, a, b))
				}
				output = append(output, curr)
			} else if prevInside {
				output = append(output, lineIntersect(prev, curr, a, b))
			}
		}
	}
	return output
}

// isInside reports whether p is on the left side of directed edge a->b,
// which is the "inside" half-plane for a counter-clockwise-wound clip
// polygon.
func isInside(a, b, p Point) bool {
	return (b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X) >= 0
}

// lineIntersect returns the intersection of segment p1-p2 with the infinite
// line through a-b.
func lineIntersect(p1, p2, a, b Point) Point {
	a1 := b.Y - a.Y
	b1 := a.X - b.X
	c1 := a1*a.X + b1*a.Y

	a2 := p2.Y - p1.Y
	b2 := p1.X - p2.X
	c2 := a2*p1.X + b2*p1.Y

	det := a1*b2 - a2*b1
	if det == 0 {
		return p2
	}
	return Point{
		X: (b2*c1 - b1*c2) / det,
		Y: (a1*c2 - a2*c1) / det,
	}
}

// ToImagePoint is a convenience conversion used when bridging geometry
// results back to gocv/image primitives.
func ToImagePoint(p Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
