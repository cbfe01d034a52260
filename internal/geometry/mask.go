package geometry

import "gocv.io/x/gocv"

// MaskPoints extracts the (x,y) coordinates of every nonzero pixel in a
// binary mask, for use by the fall-zone engine's quadrant extraction. The
// fall-zone classes are not in the rotated-box configuration set, so their
// masks are consumed directly as a pixel cloud rather than reduced to a
// RotatedBox first.
func MaskPoints(mask gocv.Mat) []Point {
	if mask.Empty() {
		return nil
	}

	rows, cols := mask.Rows(), mask.Cols()
	pts := make([]Point, 0, rows*cols/8)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if mask.GetUCharAt(y, x) != 0 {
				pts = append(pts, Point{X: float64(x), Y: float64(y)})
			}
		}
	}
	return pts
}
