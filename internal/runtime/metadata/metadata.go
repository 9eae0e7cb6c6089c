// Package metadata holds the headers attached to mirrored bridge events.
package metadata

// Header keys set on every mirrored message.
const (
	KeyContentType = "content-type"
	KeyEventType   = "ce_type"
	KeyEventID     = "ce_id"
	KeyFamily      = "mb_family"
	KeyEventName   = "mb_event"
	KeyInstance    = "mb_instance"
)

// Metadata represents the headers carried alongside a mirrored event.
type Metadata map[string]string

// Headers describes one mirrored event.
type Headers struct {
	ContentType string
	EventType   string
	EventID     string
	Family      string
	EventName   string
	Instance    string
}

// FromHeaders builds metadata from h, skipping empty values.
func FromHeaders(h Headers) Metadata {
	md := make(Metadata, 6)
	md.set(KeyContentType, h.ContentType)
	md.set(KeyEventType, h.EventType)
	md.set(KeyEventID, h.EventID)
	md.set(KeyFamily, h.Family)
	md.set(KeyEventName, h.EventName)
	md.set(KeyInstance, h.Instance)
	return md
}

// Headers reads the mirrored event headers back.
func (m Metadata) Headers() Headers {
	return Headers{
		ContentType: m[KeyContentType],
		EventType:   m[KeyEventType],
		EventID:     m[KeyEventID],
		Family:      m[KeyFamily],
		EventName:   m[KeyEventName],
		Instance:    m[KeyInstance],
	}
}

func (m Metadata) set(key, value string) {
	if value != "" {
		m[key] = value
	}
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	cloned[key] = value
	return cloned
}
