// Package apply delivers a routed event to one observer.
//
// Observers either implement Receiver and get every event of their family,
// or expose one exported method per event they care about. The method for
// "onJoinChannelSuccess" is OnJoinChannelSuccess; it may take no arguments
// or a single struct, struct pointer or map that the payload is decoded into.
//
// Observers run on the goroutine that routes events, one event at a time.
// They must not make a call that makes the engine deliver another event
// synchronously on the same thread; routing is not reentrant and would
// deadlock. Hand such calls off to another goroutine.
package apply

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"

	"github.com/drblury/mediabridge/internal/runtime/envelope"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
)

// Func invokes target for a normalized event name. Families run their Funcs
// in registration order for every resolved target.
type Func func(target any, event string, payload envelope.Payload) error

// Receiver is implemented by observers that want every event of a family
// through a single entry point. OnEvent runs while the event is being routed
// and must not wait for another event to be routed.
type Receiver interface {
	OnEvent(event string, payload envelope.Payload)
}

// Default delivers to a Receiver when target implements it, and to the
// per-event method otherwise.
func Default(target any, event string, payload envelope.Payload) error {
	if r, ok := target.(Receiver); ok {
		r.OnEvent(event, payload)
		return nil
	}
	return Method(target, event, payload)
}

// For adapts a typed callback into a Func. Targets of other types are skipped.
func For[T any](fn func(target T, event string, payload envelope.Payload)) Func {
	return func(target any, event string, payload envelope.Payload) error {
		if t, ok := target.(T); ok {
			fn(t, event, payload)
		}
		return nil
	}
}

// MethodName maps an event name onto the exported Go method that handles it.
func MethodName(event string) string {
	r, size := utf8.DecodeRuneInString(event)
	if r == utf8.RuneError {
		return event
	}
	return string(unicode.ToUpper(r)) + event[size:]
}

var payloadType = reflect.TypeOf(envelope.Payload(nil))

// Method calls the method named after event on target. Observers without
// such a method are skipped.
func Method(target any, event string, payload envelope.Payload) error {
	if target == nil {
		return nil
	}
	m := reflect.ValueOf(target).MethodByName(MethodName(event))
	if !m.IsValid() {
		return nil
	}

	mt := m.Type()
	switch mt.NumIn() {
	case 0:
		m.Call(nil)
		return nil
	case 1:
		arg, err := decodeArg(mt.In(0), payload)
		if err != nil {
			return fmt.Errorf("decode %s payload: %w", event, err)
		}
		m.Call([]reflect.Value{arg})
		return nil
	default:
		return fmt.Errorf("%w: %s takes %d arguments", errspkg.ErrUnsupportedSignature, MethodName(event), mt.NumIn())
	}
}

func decodeArg(t reflect.Type, payload envelope.Payload) (reflect.Value, error) {
	switch {
	case t == payloadType:
		return reflect.ValueOf(payload), nil
	case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && payloadType.AssignableTo(t):
		return reflect.ValueOf(map[string]any(payload)), nil
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		out := reflect.New(t.Elem())
		if err := decode(payload, out.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	case t.Kind() == reflect.Struct, t.Kind() == reflect.Map:
		out := reflect.New(t)
		if err := decode(payload, out.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return out.Elem(), nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: parameter of kind %s", errspkg.ErrUnsupportedSignature, t.Kind())
	}
}

func decode(payload envelope.Payload, result any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(payload))
}
