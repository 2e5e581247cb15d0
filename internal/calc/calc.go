// Package calc estimates the cost of printing plates.
package calc

import (
	"errors"
	"fmt"
	"math"
)

// Plate dimension limits in millimetres.
const (
	MinDimension = 100
	MaxDimension = 3000
)

// Defaults of the workshop's reference plate.
const (
	DefaultWidth         = 403
	DefaultCircumference = 1325
	DefaultQuantity      = 2
	DefaultPricePerM2    = 2900
)

// Input describes a batch of identical plates.
type Input struct {
	Width         float64 `json:"width"`         // mm
	Circumference float64 `json:"circumference"` // mm
	Quantity      int     `json:"quantity"`
	PricePerM2    float64 `json:"price_per_m2"`
}

// Estimate is the computed surface and cost of a batch.
type Estimate struct {
	AreaPerPlate float64 `json:"area_per_plate"` // m², 4 decimals
	TotalArea    float64 `json:"total_area"`     // m², 4 decimals
	TotalCost    int64   `json:"total_cost"`
}

// Defaults returns the reference plate batch.
func Defaults() Input {
	return Input{
		Width:         DefaultWidth,
		Circumference: DefaultCircumference,
		Quantity:      DefaultQuantity,
		PricePerM2:    DefaultPricePerM2,
	}
}

// Validate checks the dimensions and price. A quantity below one is not an
// error; Compute clamps it.
func (in Input) Validate() error {
	var errs []error
	if in.Width < MinDimension || in.Width > MaxDimension {
		errs = append(errs, fmt.Errorf("width must be between %d and %d mm", MinDimension, MaxDimension))
	}
	if in.Circumference < MinDimension || in.Circumference > MaxDimension {
		errs = append(errs, fmt.Errorf("circumference must be between %d and %d mm", MinDimension, MaxDimension))
	}
	if in.PricePerM2 < 0 {
		errs = append(errs, errors.New("price must not be negative"))
	}
	return errors.Join(errs...)
}

// Compute validates in and returns its estimate.
func Compute(in Input) (Estimate, error) {
	if err := in.Validate(); err != nil {
		return Estimate{}, err
	}
	qty := max(in.Quantity, 1)

	area := (in.Width / 1000) * (in.Circumference / 1000)
	total := area * float64(qty)
	return Estimate{
		AreaPerPlate: round4(area),
		TotalArea:    round4(total),
		TotalCost:    int64(math.Floor(total*in.PricePerM2 + 0.5)),
	}, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
