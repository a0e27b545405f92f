package fraction_test

import (
	"fmt"

	"github.com/matzehuels/engrave/pkg/fraction"
)

func ExampleFraction_Add() {
	// Three triplet eighths occupy exactly one quarter.
	sum := fraction.New(0, 1)
	for i := 0; i < 3; i++ {
		sum.Add(fraction.New(1, 12))
	}
	fmt.Println(sum, sum.Equals(fraction.New(1, 4)))
	// Output:
	// 1/4 true
}
