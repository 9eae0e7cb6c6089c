package dispatch

import (
	"github.com/drblury/mediabridge/internal/runtime/envelope"
	"github.com/drblury/mediabridge/internal/runtime/jsoncodec"
)

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	instance []field
}

type field struct {
	key   string
	value any
}

// WithInstance adds key to the serialized arguments without touching the
// caller's object. Later options win over earlier ones and over args.
func WithInstance(key string, value any) CallOption {
	return func(o *callOptions) {
		o.instance = append(o.instance, field{key: key, value: value})
	}
}

func (o callOptions) wrap(args envelope.Payload) any {
	if len(o.instance) == 0 {
		if args == nil {
			return envelope.Payload{}
		}
		return args
	}
	return instanceArgs{args: args, instance: o.instance}
}

// instanceArgs injects instance identity at serialization time.
type instanceArgs struct {
	args     envelope.Payload
	instance []field
}

func (a instanceArgs) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.args)+len(a.instance))
	for k, v := range a.args {
		out[k] = v
	}
	for _, f := range a.instance {
		out[f.key] = f.value
	}
	return jsoncodec.Marshal(out)
}
