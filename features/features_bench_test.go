//nolint:revive
package features

import (
	"fmt"
	"math"
	"testing"

	"github.com/v-morello/clfd/cube"
)

func makeBenchCube(b *testing.B, numSubints, numChans, numBins int) *cube.Cube {
	b.Helper()

	data := make([]float64, numSubints*numChans*numBins)

	for i := range data {
		data[i] = math.Sin(2 * math.Pi * float64(i) / float64(numBins))
	}

	freqs := make([]float64, numChans)
	for i := range freqs {
		freqs[i] = float64(i)
	}

	c, err := cube.New(data, numSubints, numChans, numBins, freqs)
	if err != nil {
		b.Fatal(err)
	}

	c.Normalized()

	return c
}

func BenchmarkExtract(b *testing.B) {
	shapes := []struct{ subints, chans, bins int }{
		{8, 64, 256},
		{16, 128, 1024},
		{32, 256, 1024},
	}

	for _, shape := range shapes {
		c := makeBenchCube(b, shape.subints, shape.chans, shape.bins)
		names := All()

		b.Run(fmt.Sprintf("%dx%dx%d", shape.subints, shape.chans, shape.bins), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(shape.subints * shape.chans * shape.bins * 8))

			for range b.N {
				if _, err := Extract(c, names); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLfamp(b *testing.B) {
	sizes := []int{64, 256, 1024, 4096}

	for _, n := range sizes {
		c := makeBenchCube(b, 1, 1, n)
		names := []Name{Lfamp}

		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(n * 8))

			for range b.N {
				if _, err := Extract(c, names); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
