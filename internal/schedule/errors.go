package schedule

import "errors"

var (
	ErrInvertedRange     = errors.New("end date must be after or equal to start date")
	ErrDateRangeConflict = errors.New("vehicle is already scheduled for this date range")
	ErrNotFound          = errors.New("schedule not found")
)
