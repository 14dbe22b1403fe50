package services

import "time"

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the local time
func (SystemClock) Now() time.Time {
	return time.Now()
}
