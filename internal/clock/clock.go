package clock

import "time"

// Clock abstracts wall-clock reads so snapshot timestamps stay
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
