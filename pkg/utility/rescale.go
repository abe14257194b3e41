package utility

import "github.com/govalues/decimal"

// Rescale rounds value to the given number of decimal places using exact
// decimal arithmetic, so persisted metrics carry no binary float noise.
// Non-finite inputs are returned unchanged.
func Rescale(value float64, scale int) float64 {
	d, err := decimal.NewFromFloat64(value)
	if err != nil {
		return value
	}
	out, ok := d.Rescale(scale).Float64()
	if !ok {
		return value
	}
	return out
}

// Rescale4 is the rounding applied to every accuracy and outperformance field
// before it is written to the warehouse.
func Rescale4(value float64) float64 {
	return Rescale(value, 4)
}
