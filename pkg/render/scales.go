package render

import (
	"math"
	"time"
)

// Transition durations.
const (
	NodeEnterDuration = 500 * time.Millisecond
	LinkEnterDuration = 2000 * time.Millisecond
	ExitDuration      = 250 * time.Millisecond
)

// Category20 is the twenty colour categorical palette used for node fills.
var Category20 = [20]string{
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
}

// Radius is the marker radius for a node value.
func Radius(value float64) float64 {
	return math.Sqrt(math.Max(value, 0))*0.3 + 3
}

// StrokeWidth is the line width for a link value.
func StrokeWidth(value float64) float64 {
	return math.Sqrt(math.Max(value, 0))*0.3 + 1
}

// Bucket groups node values in steps of five.
func Bucket(value float64) int {
	return int(math.Ceil(math.Max(value, 0) / 5))
}

// Fill is the marker colour for a node value.
func Fill(value float64) string {
	return Category20[Bucket(value)%len(Category20)]
}
