package runtime

import (
	"github.com/drblury/mediabridge/internal/runtime/logging"
	"github.com/drblury/mediabridge/internal/runtime/router"
)

// DispatchHooks observe how inbound events are routed. Merge combines them.
type DispatchHooks = router.Hooks

// EventContext describes one routed event to DispatchHooks.
type EventContext = router.EventContext

// LoggingHooks logs event routing at trace level and observer failures at
// error level.
func LoggingHooks(logger logging.ServiceLogger) DispatchHooks {
	return DispatchHooks{
		OnEventStart: func(ctx EventContext) {
			logger.Trace("Event dispatch started", logging.LogFields{
				"family":  ctx.Family,
				"event":   ctx.Event,
				"targets": ctx.Targets,
			})
		},
		OnEventDone: func(ctx EventContext) {
			logger.Trace("Event dispatched", logging.LogFields{
				"family":      ctx.Family,
				"event":       ctx.Event,
				"duration_us": ctx.Duration.Microseconds(),
			})
		},
		OnApplyError: func(ctx EventContext, err error) {
			logger.Error("Observer failed", err, logging.LogFields{
				"family": ctx.Family,
				"event":  ctx.Event,
				"kind":   ctx.Kind.String(),
			})
		},
	}
}

// MetricsHooks records routed events into m.
func MetricsHooks(m *BridgeMetrics) DispatchHooks {
	if m == nil {
		return DispatchHooks{}
	}
	return DispatchHooks{
		OnEventDone: func(ctx EventContext) {
			m.RecordEvent(ctx.Family, EventOutcomeDispatched)
		},
		OnEventExcluded: func(ctx EventContext) {
			m.RecordEvent(ctx.Family, EventOutcomeExcluded)
		},
		OnApplyError: func(ctx EventContext, err error) {
			m.RecordApplyError(ctx.Family)
		},
	}
}

// AlertingHooks calls alertFunc for every failed observer invocation.
func AlertingHooks(alertFunc func(ctx EventContext, err error)) DispatchHooks {
	return DispatchHooks{
		OnApplyError: alertFunc,
	}
}
