package markmesh

// ssim returns the mean structural similarity over the channels of two images.
//
// Statistics come from a 7x7 uniform window with sample covariance, and only
// windows that fit entirely inside the image are averaged.
func ssim(a, b [3]*Plane) float64 {
	var total float64
	for c := range a {
		total += ssimPlane(a[c], b[c])
	}
	return total / float64(len(a))
}

func ssimPlane(x, y *Plane) float64 {
	const (
		win  = ssimWindow
		np   = win * win
		c1   = (ssimK1 * pixelMax) * (ssimK1 * pixelMax)
		c2   = (ssimK2 * pixelMax) * (ssimK2 * pixelMax)
		norm = float64(np) / float64(np-1)
	)

	w, h := x.Width, x.Height
	var (
		sum   float64
		count int
	)
	for top := 0; top+win <= h; top++ {
		for left := 0; left+win <= w; left++ {
			var sx, sy, sxx, syy, sxy float64
			for j := top; j < top+win; j++ {
				rx := x.Row(j)[left : left+win]
				ry := y.Row(j)[left : left+win]
				for i := range rx {
					vx, vy := rx[i], ry[i]
					sx += vx
					sy += vy
					sxx += vx * vx
					syy += vy * vy
					sxy += vx * vy
				}
			}
			ux, uy := sx/np, sy/np
			vx := norm * (sxx/np - ux*ux)
			vy := norm * (syy/np - uy*uy)
			vxy := norm * (sxy/np - ux*uy)

			num := (2*ux*uy + c1) * (2*vxy + c2)
			den := (ux*ux + uy*uy + c1) * (vx + vy + c2)
			sum += num / den
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
