package markmesh

import "math"

// gaussianKernel returns a normalized 1-D Gaussian of the given odd size.
func gaussianKernel(size int, sigma float64) []float64 {
	k := make([]float64, size)
	r := size / 2
	var sum float64
	for i := range k {
		x := float64(i - r)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect101 maps i into [0, n) mirroring around the edge samples (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// gaussianBlur convolves p with a separable size x size Gaussian.
func gaussianBlur(p *Plane, size int, sigma float64) *Plane {
	k := gaussianKernel(size, sigma)
	r := size / 2
	w, h := p.Width, p.Height

	temp := getFloat64(w * h)
	parallelFor(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := p.Row(y)
			out := temp[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				var sum float64
				for i, kv := range k {
					sum += row[reflect101(x+i-r, w)] * kv
				}
				out[x] = sum
			}
		}
	})

	out := NewPlane(w, h)
	parallelFor(h, func(start, end int) {
		for y := start; y < end; y++ {
			dst := out.Row(y)
			for i, kv := range k {
				src := temp[reflect101(y+i-r, h)*w:]
				for x := 0; x < w; x++ {
					dst[x] += src[x] * kv
				}
			}
		}
	})

	putFloat64(temp)
	return out
}
