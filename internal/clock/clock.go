package clock

import (
	"context"
	"time"
)

type ctxClockKey struct{}

type Clock func() time.Time

// Now returns the time from the clock stored in ctx, or time.Now.
func Now(ctx context.Context) time.Time {
	c, ok := ctx.Value(ctxClockKey{}).(Clock)
	if !ok {
		return time.Now().UTC()
	}
	return c()
}

func With(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, ctxClockKey{}, c)
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
