//nolint:revive
package mask

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/v-morello/clfd/features"
)

func BenchmarkFenceStats(b *testing.B) {
	sizes := []int{64, 1024, 16384}

	for _, n := range sizes {
		rng := rand.New(rand.NewSource(42))

		values := make([]float64, n)
		for i := range values {
			values[i] = rng.NormFloat64()
		}

		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(n * 8))

			for range b.N {
				FenceStats(values, 2.0)
			}
		})
	}
}

func BenchmarkProfiles(b *testing.B) {
	shapes := []struct{ subints, chans int }{
		{16, 128},
		{32, 1024},
	}

	for _, shape := range shapes {
		c := noisyCube(b, shape.subints, shape.chans, 64)

		table, err := features.Extract(c, features.All())
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("%dx%d", shape.subints, shape.chans), func(b *testing.B) {
			b.ReportAllocs()

			for range b.N {
				if _, err := Profiles(table, 2.0, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFindSpikes(b *testing.B) {
	c := noisyCube(b, 32, 256, 256)

	b.ReportAllocs()
	b.SetBytes(int64(32 * 256 * 256 * 8))

	for range b.N {
		if _, err := FindSpikes(c, 4.0, nil); err != nil {
			b.Fatal(err)
		}
	}
}
