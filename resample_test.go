package markmesh

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestResamplePlaneConstant(t *testing.T) {
	p := NewPlane(5, 3)
	for i := range p.Pix {
		p.Pix[i] = 77
	}

	for _, interp := range []Interpolation{
		InterpolationBilinear,
		InterpolationNearest,
		InterpolationBicubic,
		InterpolationMitchellNetravali,
		InterpolationLanczos2,
		InterpolationLanczos3,
	} {
		for _, size := range [][2]int{{10, 6}, {2, 1}, {17, 9}} {
			got := ResamplePlane(p, size[0], size[1], interp)
			if got.Width != size[0] || got.Height != size[1] {
				t.Fatalf("interp %d: size %dx%d", interp, got.Width, got.Height)
			}
			for i, v := range got.Pix {
				if math.Abs(v-77) > 1e-9 {
					t.Fatalf("interp %d, %dx%d: sample %d = %v", interp, size[0], size[1], i, v)
				}
			}
		}
	}
}

func TestResamplePlaneSameSizeClones(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	p := randomPlane(rnd, 4, 4)

	got := ResamplePlane(p, 4, 4, InterpolationBilinear)
	assertPlanesClose(t, p, got, 0)

	got.Pix[0] = -1
	if p.Pix[0] == -1 {
		t.Fatal("resample must not share the source buffer")
	}
}

func TestResamplePlaneLinearRamp(t *testing.T) {
	p := NewPlane(8, 1)
	for x := range p.Pix {
		p.Pix[x] = float64(x)
	}

	got := ResamplePlane(p, 16, 1, InterpolationBilinear)
	for x := 1; x < got.Width; x++ {
		if got.Pix[x] < got.Pix[x-1] {
			t.Fatalf("ramp is not monotonic at %d: %v", x, got.Pix)
		}
	}
	if got.Pix[0] != 0 || got.Pix[15] != 7 {
		t.Fatalf("ramp ends %v and %v", got.Pix[0], got.Pix[15])
	}
}

func TestParallelForCoversRange(t *testing.T) {
	seen := make([]int, 1000)
	parallelFor(len(seen), func(start, end int) {
		for i := start; i < end; i++ {
			seen[i]++
		}
	})
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("index %d visited %d times", i, n)
		}
	}
}

func BenchmarkResamplePlane(b *testing.B) {
	rnd := rand.New(rand.NewSource(12))
	p := randomPlane(rnd, watermarkSide, watermarkSide)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ResamplePlane(p, coverSide, coverSide/2, InterpolationBilinear)
	}
}

func TestParallelForReraisesPanic(t *testing.T) {
	recovered := func() (r any) {
		defer func() { r = recover() }()
		parallelFor(256, func(start, end int) {
			if start == 0 {
				panic("chunk failed")
			}
		})
		return nil
	}()
	if recovered != "chunk failed" {
		t.Fatalf("recovered %v", recovered)
	}
}

func TestParseInterpolation(t *testing.T) {
	for _, interp := range []Interpolation{
		InterpolationBilinear,
		InterpolationNearest,
		InterpolationBicubic,
		InterpolationMitchellNetravali,
		InterpolationLanczos2,
		InterpolationLanczos3,
	} {
		got, err := ParseInterpolation(interp.String())
		if err != nil {
			t.Fatalf("%s: %v", interp, err)
		}
		if got != interp {
			t.Fatalf("%s parsed as %s", interp, got)
		}
	}

	if got, err := ParseInterpolation(""); err != nil || got != InterpolationBilinear {
		t.Fatalf("empty name: %v, %v", got, err)
	}
	if got, err := ParseInterpolation(" Lanczos3 "); err != nil || got != InterpolationLanczos3 {
		t.Fatalf("mixed case: %v, %v", got, err)
	}
	if _, err := ParseInterpolation("sinc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
