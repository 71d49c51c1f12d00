package model

import (
    "errors"

    "github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for negative prices or prices with more
// precision than minor units can carry.
var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit price (e.g. 49.99) into integer minor
// units (4999).
func ToMinorUnits(price decimal.Decimal) (int64, error) {
    if price.IsNegative() {
        return 0, ErrInvalidAmount
    }
    minor := price.Mul(hundred)
    if !minor.Equal(minor.Truncate(0)) {
        return 0, ErrInvalidAmount
    }
    return minor.IntPart(), nil
}

// FromMinorUnits converts minor units back into a major-unit decimal.
func FromMinorUnits(cents int64) decimal.Decimal {
    return decimal.New(cents, -2)
}
