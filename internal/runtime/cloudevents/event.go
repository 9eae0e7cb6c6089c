// Package cloudevents provides the CloudEvents v1.0 envelope the event
// mirror publishes routed bridge events in.
package cloudevents

import (
	"fmt"
	"time"

	idspkg "github.com/drblury/mediabridge/internal/runtime/ids"
	"github.com/drblury/mediabridge/internal/runtime/jsoncodec"
)

// SpecVersion is the CloudEvents specification version implemented.
const SpecVersion = "1.0"

// Event is a CloudEvents v1.0 event. Extensions are flattened into the top
// level object on the wire.
type Event struct {
	SpecVersion string `json:"specversion"`

	// Type is "<prefix>.<event>", e.g. mediabridge.onJoinChannelSuccess.
	Type string `json:"type"`

	// Source identifies the bridge instance that received the event.
	Source string `json:"source"`

	// ID is a ULID unless set explicitly.
	ID string `json:"id"`

	Time            time.Time `json:"time,omitempty"`
	DataContentType *string   `json:"datacontenttype,omitempty"`
	DataSchema      *string   `json:"dataschema,omitempty"`
	Subject         *string   `json:"subject,omitempty"`

	// Data is the JSON payload. Binary bodies use DataBase64 instead.
	Data       any     `json:"data,omitempty"`
	DataBase64 *string `json:"data_base64,omitempty"`

	Extensions map[string]any `json:"extensions,omitempty"`
}

// New creates an event with a fresh ULID and the current time.
func New(eventType, source string, data any) Event {
	return Event{
		SpecVersion: SpecVersion,
		Type:        eventType,
		Source:      source,
		ID:          idspkg.CreateULID(),
		Time:        Now(),
		Data:        data,
		Extensions:  make(map[string]any),
	}
}

// NewWithID creates an event with a specific ID.
func NewWithID(id, eventType, source string, data any) Event {
	evt := New(eventType, source, data)
	evt.ID = id
	return evt
}

// WithSubject sets the subject and returns the event.
func (e Event) WithSubject(subject string) Event {
	e.Subject = &subject
	return e
}

// WithDataContentType sets the data content type and returns the event.
func (e Event) WithDataContentType(contentType string) Event {
	e.DataContentType = &contentType
	return e
}

// WithDataSchema sets the data schema and returns the event.
func (e Event) WithDataSchema(schema string) Event {
	e.DataSchema = &schema
	return e
}

// WithExtension sets an extension attribute and returns the event.
func (e Event) WithExtension(key string, value any) Event {
	e = e.Clone()
	if e.Extensions == nil {
		e.Extensions = make(map[string]any)
	}
	e.Extensions[key] = value
	return e
}

// GetExtension returns the extension value, or nil.
func (e Event) GetExtension(key string) any {
	if e.Extensions == nil {
		return nil
	}
	return e.Extensions[key]
}

// GetExtensionString returns the extension formatted as a string.
func (e Event) GetExtensionString(key string) string {
	switch v := e.GetExtension(key).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetExtensionInt64 returns a numeric extension, or 0.
func (e Event) GetExtensionInt64(key string) int64 {
	switch n := e.GetExtension(key).(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Validate checks the required CloudEvents attributes.
func (e Event) Validate() error {
	if e.SpecVersion == "" {
		return fmt.Errorf("specversion is required")
	}
	if e.SpecVersion != SpecVersion {
		return fmt.Errorf("specversion must be %q, got %q", SpecVersion, e.SpecVersion)
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.Source == "" {
		return fmt.Errorf("source is required")
	}
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// Clone returns a copy that shares no optional attribute or extension map
// with e. Data is not copied.
func (e Event) Clone() Event {
	cloned := e
	cloned.DataContentType = cloneString(e.DataContentType)
	cloned.DataSchema = cloneString(e.DataSchema)
	cloned.Subject = cloneString(e.Subject)
	cloned.DataBase64 = cloneString(e.DataBase64)
	if e.Extensions != nil {
		cloned.Extensions = make(map[string]any, len(e.Extensions))
		for k, v := range e.Extensions {
			cloned.Extensions[k] = v
		}
	}
	return cloned
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var knownAttrs = map[string]bool{
	"specversion":     true,
	"type":            true,
	"source":          true,
	"id":              true,
	"time":            true,
	"datacontenttype": true,
	"dataschema":      true,
	"subject":         true,
	"data":            true,
	"data_base64":     true,
}

// MarshalJSON writes the structured-mode JSON representation.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(knownAttrs)+len(e.Extensions))
	for k, v := range e.Extensions {
		if !knownAttrs[k] {
			m[k] = v
		}
	}

	m["specversion"] = e.SpecVersion
	m["type"] = e.Type
	m["source"] = e.Source
	m["id"] = e.ID
	if ts := FormatTime(e.Time); ts != "" {
		m["time"] = ts
	}
	if e.DataContentType != nil {
		m["datacontenttype"] = *e.DataContentType
	}
	if e.DataSchema != nil {
		m["dataschema"] = *e.DataSchema
	}
	if e.Subject != nil {
		m["subject"] = *e.Subject
	}
	if e.Data != nil {
		m["data"] = e.Data
	}
	if e.DataBase64 != nil {
		m["data_base64"] = *e.DataBase64
	}
	return jsoncodec.Marshal(m)
}

// UnmarshalJSON reads the structured-mode JSON representation. Unknown
// attributes become extensions.
func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := jsoncodec.Unmarshal(data, &m); err != nil {
		return err
	}

	*e = Event{Extensions: make(map[string]any)}
	var err error
	str := func(key string) string {
		v, ok := m[key]
		if !ok || err != nil {
			return ""
		}
		s, isString := v.(string)
		if !isString {
			err = fmt.Errorf("invalid %s: expected a string", key)
		}
		return s
	}
	optional := func(key string) *string {
		if _, ok := m[key]; !ok {
			return nil
		}
		s := str(key)
		return &s
	}

	e.SpecVersion = str("specversion")
	e.Type = str("type")
	e.Source = str("source")
	e.ID = str("id")
	e.DataContentType = optional("datacontenttype")
	e.DataSchema = optional("dataschema")
	e.Subject = optional("subject")
	e.DataBase64 = optional("data_base64")
	if ts := str("time"); ts != "" && err == nil {
		e.Time, err = ParseTime(ts)
	}
	if err != nil {
		return err
	}
	if v, ok := m["data"]; ok {
		e.Data = v
	}

	for k, v := range m {
		if !knownAttrs[k] {
			e.Extensions[k] = v
		}
	}
	return nil
}
