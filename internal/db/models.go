package db

import (
	"time"

	"github.com/google/uuid"
)

// Stored measure types
const (
	MeasureTypeWater = "WATER"
	MeasureTypeGas   = "GAS"
)

// MeasureTypes lists every accepted measure type
var MeasureTypes = []string{MeasureTypeWater, MeasureTypeGas}

// Reading represents a meter reading in the database
type Reading struct {
	ID              uuid.UUID
	CustomerCode    string
	MeasureDatetime time.Time
	MeasureType     string
	MeasureValue    *int64
	ImageURL        string
	HasConfirmed    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
