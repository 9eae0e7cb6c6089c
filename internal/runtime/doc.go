/*
Package runtime implements the media engine bridge.

# Architecture Overview

Every call into the native media engine and every event coming back out
crosses a single string boundary: a method or event name, a JSON payload
and an optional list of raw byte buffers. The runtime package owns both
directions. Calls are encoded and decoded by the dispatcher; events are
decoded, matched to a family, delivered to registered observers and then
broadcast to external listeners.

# Package Structure

## Bridge (bridge.go)

The Bridge struct is the central orchestrator that wires together:
  - Call dispatcher (dispatch/)
  - Event router with the family table (router/, families.go)
  - Observer registries for the engine and each player or recorder
  - Listener bus (bus/)
  - Optional Prometheus metrics and event mirror

## Families (families.go, events.go)

The family table lists the twelve event families, their name prefixes,
the observer registry each resolves to and the buffer rules used to
splice raw buffers back into payloads.

## Observers (observers.go, player.go, recorder.go)

Register and unregister operations for engine-wide observers and for
media player and media recorder instances. The native registration call
is issued for the first observer of a registry and the native
unregistration call for the last one.

## Listeners (listeners.go)

The listener facade. Adding a listener for an event whose observer family
requires an explicit registration fails until one exists; for the other
families a default observer is registered on demand.

## Monitoring (hooks.go, metrics.go, status.go)

Dispatch hooks, Prometheus collectors and an HTTP status handler.

## Mirror (mirror.go)

Republishes routed events as CloudEvents on a Watermill transport.

# Sub-packages

  - apply/: Delivering an event to one observer by method name
  - bus/: Listener subscriptions keyed by event name
  - cloudevents/: CloudEvents envelope and mediabridge extensions
  - config/: Bridge configuration with validation
  - dispatch/: Call encoding, result decoding and outcome classification
  - endpoint/: The native boundary (purego library or in-memory fake)
  - envelope/: Buffer envelope codec
  - errors/: Sentinel errors
  - ids/: ULID generation for mirrored event IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Mirrored message headers
  - registry/: Ordered, deduplicated observer registries
  - router/: Event families, matching and dispatch

# Usage Example

	conf := mediabridge.DefaultConfig()
	ep, err := mediabridge.OpenNativeEndpoint(conf.LibraryPath)
	if err != nil {
		return err
	}

	bridge, err := mediabridge.NewBridge(conf, logger, mediabridge.Dependencies{Endpoint: ep})
	if err != nil {
		return err
	}
	defer bridge.Release(ctx)

	bridge.Initialize(ctx, mediabridge.Payload{"appId": appID})
	bridge.AddListener("onUserJoined", func(evt mediabridge.Event) {
		logger.Info("user joined", mediabridge.LogFields{"uid": evt.Payload["remoteUid"]})
	})
*/
package runtime
