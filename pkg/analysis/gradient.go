package analysis

// gradient differentiates samples f on a possibly non-uniform grid t.
// Interior points use the second-order central formula; the two endpoints
// fall back to first-order one-sided differences and are less accurate.
func gradient(f, t []float64) []float64 {
	n := len(f)
	df := make([]float64, n)
	if n < 2 {
		return df
	}

	df[0] = (f[1] - f[0]) / (t[1] - t[0])
	df[n-1] = (f[n-1] - f[n-2]) / (t[n-1] - t[n-2])

	for i := 1; i < n-1; i++ {
		h1 := t[i] - t[i-1]
		h2 := t[i+1] - t[i]
		df[i] = (h1*h1*f[i+1] - h2*h2*f[i-1] + (h2*h2-h1*h1)*f[i]) / (h1 * h2 * (h1 + h2))
	}
	return df
}
