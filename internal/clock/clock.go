package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return System{} }),
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// YearIn returns the calendar year of now in loc.
func YearIn(c Clock, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return c.Now().In(loc).Year()
}
