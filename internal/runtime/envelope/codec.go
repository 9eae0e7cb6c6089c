package envelope

// Slot is one position in a method's buffer list. A slot with no path is a
// fixed empty placeholder that keeps later positions aligned.
type Slot struct {
	Path []string
}

// Field declares a slot backed by a dotted field path such as "frame.buffer".
func Field(path string) Slot {
	return Slot{Path: SplitPath(path)}
}

// Placeholder declares an always-empty slot.
func Placeholder() Slot {
	return Slot{}
}

// IsPlaceholder reports whether the slot never carries data.
func (s Slot) IsPlaceholder() bool {
	return len(s.Path) == 0
}

// Rule is the ordered buffer layout of a single method.
type Rule []Slot

// Rules maps method names onto their buffer layout.
type Rules map[string]Rule

// DefaultRules returns the buffer layout for every call that carries raw
// media. Positions are part of the boundary contract.
func DefaultRules() Rules {
	return Rules{
		"MediaEngine_pushAudioFrame":        {Field("frame.buffer")},
		"MediaEngine_pushEncodedVideoImage": {Field("imageBuffer")},
		"MediaEngine_pushVideoFrame": {
			Field("frame.buffer"),
			Placeholder(),
			Placeholder(),
			Placeholder(),
			Field("frame.alphaBuffer"),
		},
		"RtcEngine_sendStreamMessage":     {Field("data")},
		"RtcEngineEx_sendStreamMessageEx": {Field("data")},
		"RtcEngine_sendMetaData":          {Field("metadata.buffer")},
		"RtcEngine_sendAudioMetadata":     {Field("metadata")},
	}
}

// With returns a copy of r with an extra or replaced rule.
func (r Rules) With(method string, rule Rule) Rules {
	out := make(Rules, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[method] = rule
	return out
}

// Extract splits args into the structured remainder and the ordered buffer
// list for method. The caller's map is never mutated: any object on the path
// of a removed buffer is copied before the field is dropped. Absent fields
// yield an empty buffer at their position; methods without a rule yield none.
func (r Rules) Extract(method string, args Payload) (Payload, [][]byte) {
	rule, ok := r[method]
	if !ok || len(rule) == 0 {
		return args, nil
	}

	stripped := map[string]any(args)
	buffers := make([][]byte, len(rule))
	for i, slot := range rule {
		buffers[i] = []byte{}
		if slot.IsPlaceholder() || stripped == nil {
			continue
		}
		next, buf, removed := strip(stripped, slot.Path)
		if !removed {
			continue
		}
		stripped = next
		if buf != nil {
			buffers[i] = buf
		}
	}
	return Payload(stripped), buffers
}

func strip(m map[string]any, path []string) (map[string]any, []byte, bool) {
	v, ok := m[path[0]]
	if !ok {
		return m, nil, false
	}
	if len(path) == 1 {
		buf, isBuf := asBuffer(v)
		if !isBuf {
			return m, nil, false
		}
		out := cloneMap(m)
		delete(out, path[0])
		return out, buf, true
	}
	child, ok := asMap(v)
	if !ok {
		return m, nil, false
	}
	nextChild, buf, removed := strip(child, path[1:])
	if !removed {
		return m, nil, false
	}
	out := cloneMap(m)
	out[path[0]] = nextChild
	return out, buf, true
}

// Splice assigns buf to the nested field at path. The assignment only happens
// when every parent object on the path already exists; it reports whether the
// field was written.
func Splice(p Payload, path []string, buf []byte) bool {
	if p == nil || len(path) == 0 {
		return false
	}
	parent := map[string]any(p)
	for _, key := range path[:len(path)-1] {
		next, ok := asMap(parent[key])
		if !ok {
			return false
		}
		parent = next
	}
	parent[path[len(path)-1]] = buf
	return true
}

// SpliceAll writes buffers positionally: buffers[i] lands on rule[i].
// Placeholder slots and positions without a buffer are skipped.
func SpliceAll(p Payload, rule Rule, buffers [][]byte) int {
	written := 0
	for i, slot := range rule {
		if slot.IsPlaceholder() || i >= len(buffers) {
			continue
		}
		if Splice(p, slot.Path, buffers[i]) {
			written++
		}
	}
	return written
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
