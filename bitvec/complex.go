package bitvec

import "math/cmplx"

// AddC returns a+b element-wise. a and b must have equal length.
func AddC(a, b []complex128) []complex128 {
	out := make([]complex128, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// SubC returns a-b element-wise.
func SubC(a, b []complex128) []complex128 {
	out := make([]complex128, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// ScaleC multiplies every element of a by s.
func ScaleC(a []complex128, s complex128) []complex128 {
	out := make([]complex128, len(a))
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}

// DotC returns the conjugate (Hermitian) inner product sum(a[i] * conj(b[i])).
func DotC(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += a[i] * cmplx.Conj(b[i])
	}
	return sum
}

// Magnitude returns |x| element-wise.
func Magnitude(a []complex128) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = cmplx.Abs(v)
	}
	return out
}

// AveragePower returns mean(|x_i|^2).
func AveragePower(a []complex128) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for _, v := range a {
		m := cmplx.Abs(v)
		sum += m * m
	}
	return sum / float64(len(a))
}
