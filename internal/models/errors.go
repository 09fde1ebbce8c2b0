package models

import "errors"

// Error kinds surfaced by a simulation run. Every one of them aborts the run.
var (
	ErrInvalidDate                  = errors.New("invalid date")
	ErrInvalidDistributionParameter = errors.New("invalid distribution parameter")
	ErrInvalidInput                 = errors.New("invalid input")
	ErrIO                           = errors.New("io error")
)
