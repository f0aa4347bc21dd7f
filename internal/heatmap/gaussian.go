package heatmap

import (
	"image"

	"gocv.io/x/gocv"
)

// gaussianTruncate is the kernel half-width in standard deviations.
const gaussianTruncate = 4.0

// KernelSize returns the Gaussian aperture for sigma: int(4*sigma+0.5)
// bins either side of the centre.
func KernelSize(sigma float64) int {
	return 2*int(gaussianTruncate*sigma+0.5) + 1
}

// GaussianFilter blurs a 2-D array along both axes with the same sigma.
// Samples beyond the edges are mirrored (d c b a | a b c d | d c b a).
func GaussianFilter(data [][]float64, sigma float64) [][]float64 {
	if sigma <= 0 || len(data) == 0 || len(data[0]) == 0 {
		return data
	}
	nRows, nCols := len(data), len(data[0])

	src := gocv.NewMatWithSize(nRows, nCols, gocv.MatTypeCV64F)
	defer src.Close()
	for i, row := range data {
		for j, v := range row {
			src.SetDoubleAt(i, j, v)
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	k := KernelSize(sigma)
	gocv.GaussianBlur(src, &dst, image.Point{X: k, Y: k}, sigma, sigma, gocv.BorderReflect)

	out := make([][]float64, nRows)
	for i := range out {
		out[i] = make([]float64, nCols)
		for j := range out[i] {
			out[i][j] = dst.GetDoubleAt(i, j)
		}
	}
	return out
}
