package scene

import (
	"math/rand/v2"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseInjector simulates sensor imperfection: a single multiplicative gamma
// sample applied to a whole depth frame, and smoothed additive Gaussian noise
// on the 3D point field. All sampling draws from the injector's source, so a
// seeded source makes a run reproducible.
type NoiseInjector struct {
	// GammaShape and GammaScale parameterize the per-frame depth multiplier;
	// the defaults give mean 1.0 with low variance.
	GammaShape float64
	GammaScale float64
	// RescaleFactorMin and RescaleFactorMax bound the integer coarse-grid
	// divisor for point noise, sampled from [min, max).
	RescaleFactorMin int
	RescaleFactorMax int
	// GaussianScaleMax bounds the point-noise standard deviation, sampled
	// uniformly from [0, max).
	GaussianScaleMax float64

	src rand.Source
}

// NewNoiseInjector returns an injector with the recording pipeline's standard
// noise parameters, drawing from src.
func NewNoiseInjector(src rand.Source) *NoiseInjector {
	return &NoiseInjector{
		GammaShape:       1000.,
		GammaScale:       0.001,
		RescaleFactorMin: 12,
		RescaleFactorMax: 20,
		GaussianScaleMax: 0.003,
		src:              src,
	}
}

// PerturbDepth multiplies every depth value in place by one gamma sample.
func (n *NoiseInjector) PerturbDepth(depth []float64) {
	gamma := distuv.Gamma{Alpha: n.GammaShape, Beta: 1 / n.GammaScale, Src: n.src}
	m := gamma.Rand()
	for i := range depth {
		depth[i] *= m
	}
}

// PerturbPoints adds smoothed Gaussian noise to the point field in place,
// only at pixels with positive depth. Noise is sampled on a coarse grid of
// size (height/f, width/f) and upsampled with cubic interpolation.
func (n *NoiseInjector) PerturbPoints(xyz []r3.Vector, depth []float64, width, height int) error {
	if len(xyz) != width*height || len(depth) != width*height {
		return errors.Errorf("point field has %d points and %d depths, want %d",
			len(xyz), len(depth), width*height)
	}
	r := rand.New(n.src)
	factor := r.IntN(n.RescaleFactorMax-n.RescaleFactorMin) + n.RescaleFactorMin
	scale := distuv.Uniform{Min: 0, Max: n.GaussianScaleMax, Src: n.src}.Rand()
	smallW, smallH := width/factor, height/factor
	if smallW < 2 || smallH < 2 {
		return errors.Errorf("frame %dx%d too small for rescale factor %d", width, height, factor)
	}

	normal := distuv.Normal{Mu: 0, Sigma: scale, Src: n.src}
	var fine [3][]float64
	for c := 0; c < 3; c++ {
		coarse := make([]float64, smallW*smallH)
		for i := range coarse {
			coarse[i] = normal.Rand()
		}
		up, err := upsampleCubic(coarse, smallW, smallH, width, height)
		if err != nil {
			return err
		}
		fine[c] = up
	}

	for i := range xyz {
		if depth[i] <= 0 {
			continue
		}
		xyz[i].X += fine[0][i]
		xyz[i].Y += fine[1][i]
		xyz[i].Z += fine[2][i]
	}
	return nil
}

// upsampleCubic expands a coarse row-major grid to (width, height) with
// separable natural cubic interpolation, mapping by pixel centers.
func upsampleCubic(coarse []float64, smallW, smallH, width, height int) ([]float64, error) {
	colXs := pixelCenters(smallW, width)
	rowXs := pixelCenters(smallH, height)
	fineCols := make([]float64, width)
	for x := 0; x < width; x++ {
		fineCols[x] = clamp(float64(x), colXs[0], colXs[smallW-1])
	}
	fineRows := make([]float64, height)
	for y := 0; y < height; y++ {
		fineRows[y] = clamp(float64(y), rowXs[0], rowXs[smallH-1])
	}

	// interpolate along columns first, then rows
	mid := make([]float64, smallH*width)
	row := make([]float64, smallW)
	for sy := 0; sy < smallH; sy++ {
		copy(row, coarse[sy*smallW:(sy+1)*smallW])
		var cub interp.NaturalCubic
		if err := cub.Fit(colXs, row); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			mid[sy*width+x] = cub.Predict(fineCols[x])
		}
	}

	out := make([]float64, width*height)
	col := make([]float64, smallH)
	for x := 0; x < width; x++ {
		for sy := 0; sy < smallH; sy++ {
			col[sy] = mid[sy*width+x]
		}
		var cub interp.NaturalCubic
		if err := cub.Fit(rowXs, col); err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			out[y*width+x] = cub.Predict(fineRows[y])
		}
	}
	return out, nil
}

// pixelCenters returns the fine-grid coordinates of coarse pixel centers for
// an n-to-size axis expansion.
func pixelCenters(n, size int) []float64 {
	s := float64(size) / float64(n)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = (float64(i)+0.5)*s - 0.5
	}
	return xs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
