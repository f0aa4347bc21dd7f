package detrend

import (
	"fmt"
	"math"
	"math/cmplx"
)

// zpk is a filter in zero, pole, gain form.
type zpk struct {
	z, p []complex128
	k    float64
}

// buttap returns the analog Butterworth low-pass prototype of the given
// order: no zeros, poles on the unit circle in the left half plane.
func buttap(order int) zpk {
	p := make([]complex128, order)
	for i := range p {
		m := float64(-order + 1 + 2*i)
		p[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}
	return zpk{p: p, k: 1}
}

// Digital filters are designed against fs = 2, so normalized frequencies of
// 1 are Nyquist.
const designFs = 2.0

func prewarp(wn float64) float64 {
	return 2 * designFs * math.Tan(math.Pi*wn/designFs)
}

func lp2lp(f zpk, wo float64) zpk {
	degree := len(f.p) - len(f.z)
	out := zpk{k: f.k * math.Pow(wo, float64(degree))}
	for _, z := range f.z {
		out.z = append(out.z, z*complex(wo, 0))
	}
	for _, p := range f.p {
		out.p = append(out.p, p*complex(wo, 0))
	}
	return out
}

func lp2bp(f zpk, wo, bw float64) zpk {
	degree := len(f.p) - len(f.z)
	half := complex(bw/2, 0)
	wo2 := complex(wo*wo, 0)

	shift := func(roots []complex128) []complex128 {
		out := make([]complex128, 0, 2*len(roots))
		for _, r := range roots {
			r = r * half
			out = append(out, r+cmplx.Sqrt(r*r-wo2))
		}
		for _, r := range roots {
			r = r * half
			out = append(out, r-cmplx.Sqrt(r*r-wo2))
		}
		return out
	}

	out := zpk{z: shift(f.z), p: shift(f.p), k: f.k * math.Pow(bw, float64(degree))}
	for i := 0; i < degree; i++ {
		out.z = append(out.z, 0)
	}
	return out
}

func bilinear(f zpk) zpk {
	fs2 := complex(2*designFs, 0)
	degree := len(f.p) - len(f.z)

	num, den := complex(1, 0), complex(1, 0)
	out := zpk{}
	for _, z := range f.z {
		out.z = append(out.z, (fs2+z)/(fs2-z))
		num *= fs2 - z
	}
	for _, p := range f.p {
		out.p = append(out.p, (fs2+p)/(fs2-p))
		den *= fs2 - p
	}
	for i := 0; i < degree; i++ {
		out.z = append(out.z, -1)
	}
	out.k = f.k * real(num/den)
	return out
}

// poly expands roots into polynomial coefficients, highest power first.
func poly(roots []complex128) []complex128 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	return c
}

func (f zpk) transfer() (b, a []float64) {
	bc, ac := poly(f.z), poly(f.p)
	b = make([]float64, len(bc))
	for i, v := range bc {
		b[i] = f.k * real(v)
	}
	a = make([]float64, len(ac))
	for i, v := range ac {
		a[i] = real(v)
	}
	return b, a
}

// ButterLowpass designs a digital Butterworth low-pass filter. wn is the
// cutoff as a fraction of Nyquist.
func ButterLowpass(order int, wn float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("butter: order must be positive, got %d", order)
	}
	if wn <= 0 || wn >= 1 {
		return nil, nil, fmt.Errorf("butter: cutoff %g must be in (0, 1)", wn)
	}
	b, a = bilinear(lp2lp(buttap(order), prewarp(wn))).transfer()
	return b, a, nil
}

// ButterBandpass designs a digital Butterworth band-pass filter of 2*order
// poles. low and high are band edges as fractions of Nyquist.
func ButterBandpass(order int, low, high float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("butter: order must be positive, got %d", order)
	}
	if low <= 0 || high >= 1 || low >= high {
		return nil, nil, fmt.Errorf("butter: band [%g, %g] must satisfy 0 < low < high < 1", low, high)
	}
	w1, w2 := prewarp(low), prewarp(high)
	b, a = bilinear(lp2bp(buttap(order), math.Sqrt(w1*w2), w2-w1)).transfer()
	return b, a, nil
}

// Bandpass designs a band-pass between lowHz and highHz for samples taken
// at fs Hz.
func Bandpass(order int, lowHz, highHz, fs float64) (b, a []float64, err error) {
	nyq := fs / 2
	return ButterBandpass(order, lowHz/nyq, highHz/nyq)
}

// Response evaluates the transfer function b/a at w radians per sample.
func Response(b, a []float64, w float64) complex128 {
	eval := func(c []float64) complex128 {
		var s complex128
		for k, v := range c {
			s += complex(v, 0) * cmplx.Exp(complex(0, -w*float64(k)))
		}
		return s
	}
	return eval(b) / eval(a)
}
