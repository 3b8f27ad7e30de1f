package plan

import "errors"

var (
	// ErrNoCurrentPlan is returned by notebook operations that need an
	// active plan when none exists.
	ErrNoCurrentPlan = errors.New("the current plan is nil, create a plan by calling CreatePlan first")

	ErrInvalidPlan      = errors.New("invalid plan")
	ErrPlanExists       = errors.New("plan already exists")
	ErrHookNotFound     = errors.New("change hook not found")
	ErrStorageNotFound  = errors.New("plan storage not found")
	ErrEmptyStorageName = errors.New("plan storage name is empty")
)
