package features_test

import (
	"fmt"

	"github.com/v-morello/clfd/cube"
	"github.com/v-morello/clfd/features"
)

func ExampleExtract() {
	// A single square-wave profile: after baseline subtraction and
	// normalization the samples alternate between -1 and +1.
	data := []float64{0, 1, 0, 1, 0, 1, 0, 1}

	c, err := cube.New(data, 1, 1, 8, []float64{1400.0})
	if err != nil {
		panic(err)
	}

	table, err := features.Extract(c, []features.Name{
		features.Std, features.Ptp, features.Var,
		features.Skew, features.Kurtosis, features.ACF,
	})
	if err != nil {
		panic(err)
	}

	for _, name := range table.Names() {
		x, _ := table.Value(name, 0, 0)
		fmt.Printf("%s=%.1f\n", name, x)
	}

	// Output:
	// std=1.0
	// ptp=2.0
	// var=1.0
	// skew=0.0
	// kurtosis=-2.0
	// acf=-1.0
}
