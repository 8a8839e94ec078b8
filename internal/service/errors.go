package service

import "errors"

var (
	// ErrValidation marks input rejected before it reaches the store.
	ErrValidation = errors.New("validation failed")
	// ErrPlanCapacity marks a plan selection larger than MaxPlanSize.
	ErrPlanCapacity = errors.New("plan capacity exceeded")
)
