package geometry

import "math"

// Trapezoid is the four corners extracted from a fall-zone mask's quadrants.
type Trapezoid struct {
	TopLeft, TopRight, BottomLeft, BottomRight Point
}

// QuadrantExtract builds a Trapezoid from a set of mask pixel coordinates,
// choosing each corner as the argmin/argmax of a quadrant-specific score,
// falling back to the mask's bounding-box corner when a quadrant is empty.
// This mirrors the Python source's quadrant partitioning around the mask
// centroid.
func QuadrantExtract(pixels []Point) (Trapezoid, bool) {
	if len(pixels) == 0 {
		return Trapezoid{}, false
	}

	minX, minY := pixels[0].X, pixels[0].Y
	maxX, maxY := pixels[0].X, pixels[0].Y
	for _, p := range pixels[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2

	var (
		haveTL, haveTR, haveBL, haveBR bool
		tl, tr, bl, br                 Point
		tlScore, trScore, blScore      float64
		brScore                        float64
	)

	for _, p := range pixels {
		switch {
		case p.X < cx && p.Y < cy: // Q2 (top-left quadrant)
			score := p.X + p.Y
			if !haveTL || score < tlScore {
				tl, tlScore, haveTL = p, score, true
			}
		case p.X >= cx && p.Y < cy: // Q1 (top-right quadrant)
			score := -p.X + p.Y
			if !haveTR || score < trScore {
				tr, trScore, haveTR = p, score, true
			}
		case p.X < cx && p.Y >= cy: // Q3 (bottom-left quadrant)
			score := p.X - p.Y
			if !haveBL || score < blScore {
				bl, blScore, haveBL = p, score, true
			}
		default: // Q4 (bottom-right quadrant)
			score := p.X + p.Y
			if !haveBR || score > brScore {
				br, brScore, haveBR = p, score, true
			}
		}
	}

	if !haveTL {
		tl = Point{X: minX, Y: minY}
	}
	if !haveTR {
		tr = Point{X: maxX, Y: minY}
	}
	if !haveBL {
		bl = Point{X: minX, Y: maxY}
	}
	if !haveBR {
		br = Point{X: maxX, Y: maxY}
	}

	return Trapezoid{TopLeft: tl, TopRight: tr, BottomLeft: bl, BottomRight: br}, true
}

// LateralAngles returns the angle in degrees (atan2(dy,dx)) of the right
// lateral side (top-right to bottom-right) and the left lateral side
// (top-left to bottom-left). Direction matters: this measures top->bottom,
// not bottom->top, to match the source's dx/dy sign convention.
func (t Trapezoid) LateralAngles() (rightDeg, leftDeg float64) {
	rightDeg = math.Atan2(t.BottomRight.Y-t.TopRight.Y, t.BottomRight.X-t.TopRight.X) * 180 / math.Pi
	leftDeg = math.Atan2(t.BottomLeft.Y-t.TopLeft.Y, t.BottomLeft.X-t.TopLeft.X) * 180 / math.Pi
	return
}

// IsValidStairShape reports whether the lateral angles describe a trapezoid
// with the wider base at the bottom: the right side in [0,90] and the left
// side in [90,180] ∪ [-180,-90].
func IsValidStairShape(rightDeg, leftDeg float64) bool {
	rightOK := rightDeg >= 0 && rightDeg <= 90
	leftOK := (leftDeg >= 90 && leftDeg <= 180) || (leftDeg >= -180 && leftDeg <= -90)
	return rightOK && leftOK
}

// VanishingPoint intersects the two lateral sides, extended to infinite
// lines. ok is false when the two sides are parallel (equal slope) or either
// side is vertical in a way that degenerates the intersection.
func VanishingPoint(t Trapezoid) (Point, bool) {
	// Left line: BottomLeft -> TopLeft. Right line: BottomRight -> TopRight.
	x1, y1, x2, y2 := t.BottomLeft.X, t.BottomLeft.Y, t.TopLeft.X, t.TopLeft.Y
	x3, y3, x4, y4 := t.BottomRight.X, t.BottomRight.Y, t.TopRight.X, t.TopRight.Y

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if denom == 0 {
		return Point{}, false
	}

	px := ((x1*y2-y1*x2)*(x3-x4) - (x1-x2)*(x3*y4-y3*x4)) / denom
	py := ((x1*y2-y1*x2)*(y3-y4) - (y1-y2)*(x3*y4-y3*x4)) / denom
	return Point{X: px, Y: py}, true
}

// ReferenceY computes the descending-stair reference y-coordinate.
func ReferenceY(cy, imgHeight, stairLandingHeight, stairAngleDeg float64) float64 {
	stairAngleRad := stairAngleDeg * math.Pi / 180
	return math.Round(imgHeight/2 - (imgHeight - cy) - stairLandingHeight*math.Sin(stairAngleRad))
}
