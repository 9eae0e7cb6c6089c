package router

import "time"

// EventContext describes one routed event to hooks.
type EventContext struct {
	Family    string
	Kind      Kind
	Event     string
	RawName   string
	Targets   int
	StartedAt time.Time
	// Duration is only set in OnEventDone.
	Duration time.Duration
}

// Hooks observe the routing of events. Nil hooks are skipped.
type Hooks struct {
	// OnEventStart runs once targets are resolved, before preprocessing.
	OnEventStart func(ctx EventContext)

	// OnEventDone runs after observers ran and the event was republished.
	OnEventDone func(ctx EventContext)

	// OnEventExcluded runs when a family matched but its resolver
	// returned no targets.
	OnEventExcluded func(ctx EventContext)

	// OnApplyError runs for every failed or panicking apply invocation.
	OnApplyError func(ctx EventContext, err error)
}

// Merge returns hooks that run h first and other second.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnEventStart:    chain(h.OnEventStart, other.OnEventStart),
		OnEventDone:     chain(h.OnEventDone, other.OnEventDone),
		OnEventExcluded: chain(h.OnEventExcluded, other.OnEventExcluded),
		OnApplyError:    chainError(h.OnApplyError, other.OnApplyError),
	}
}

func chain(a, b func(EventContext)) func(EventContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx EventContext) {
		a(ctx)
		b(ctx)
	}
}

func chainError(a, b func(EventContext, error)) func(EventContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx EventContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}
