package cloudevents

// Extension keys carried by mirrored bridge events. CloudEvents restricts
// extension names to lower-case alphanumerics.
const (
	// ExtFamily is the event family that routed the event.
	ExtFamily = "mbfamily"

	// ExtKind is the owner kind of the family (engine, media_player, ...).
	ExtKind = "mbkind"

	// ExtRawName is the event name as received from the boundary.
	ExtRawName = "mbrawname"

	// ExtBuffers is the number of raw buffers that travelled with the event.
	ExtBuffers = "mbbuffers"

	// ExtInstance identifies the player or recorder the event belongs to.
	ExtInstance = "mbinstance"

	// ExtTraceID is the distributed trace ID.
	ExtTraceID = "mbtraceid"

	// ExtCorrelationID correlates mirrored events of one bridge session.
	ExtCorrelationID = "mbcorrelationid"
)

// GetFamily returns the routing family of evt.
func GetFamily(evt Event) string {
	return evt.GetExtensionString(ExtFamily)
}

// GetRawName returns the unnormalized event name.
func GetRawName(evt Event) string {
	return evt.GetExtensionString(ExtRawName)
}

// GetBuffers returns how many raw buffers accompanied evt.
func GetBuffers(evt Event) int {
	return int(evt.GetExtensionInt64(ExtBuffers))
}

// GetInstance returns the player id or recorder handle of evt.
func GetInstance(evt Event) string {
	return evt.GetExtensionString(ExtInstance)
}

// GetTraceID returns the trace ID of evt.
func GetTraceID(evt Event) string {
	return evt.GetExtensionString(ExtTraceID)
}

// SetTraceID sets the trace ID, removing it when empty.
func SetTraceID(evt *Event, traceID string) {
	setString(evt, ExtTraceID, traceID)
}

// GetCorrelationID returns the correlation ID of evt.
func GetCorrelationID(evt Event) string {
	return evt.GetExtensionString(ExtCorrelationID)
}

// SetCorrelationID sets the correlation ID, removing it when empty.
func SetCorrelationID(evt *Event, correlationID string) {
	setString(evt, ExtCorrelationID, correlationID)
}

func setString(evt *Event, key, value string) {
	if evt.Extensions == nil {
		evt.Extensions = make(map[string]any)
	}
	if value == "" {
		delete(evt.Extensions, key)
		return
	}
	evt.Extensions[key] = value
}
