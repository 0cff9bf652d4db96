package detection

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/ohler55/ojg/oj"

	"github.com/getmockd/replayd/pkg/util"
)

// absent marks a key missing from one body.
type absent struct{}

func parseJSON(body string) (any, error) {
	return oj.ParseString(body)
}

// jsonDiff walks parsed JSON bodies in parallel.
type jsonDiff struct {
	found []observation
}

func (d *jsonDiff) compare(path jsonPath, vals []any) {
	if allDeepEqual(vals) {
		return
	}

	// The root has no useful container path; it is always walked, anchored
	// on the keys of the first body.
	if len(path) == 0 {
		if first, ok := vals[0].(map[string]any); ok && allObjects(vals) {
			d.compareKeys(path, first, vals)
			return
		}
	}

	if first, ok := vals[0].(map[string]any); ok && sameKeySets(vals) {
		d.compareKeys(path, first, vals)
		return
	}

	if first, ok := vals[0].([]any); ok && sameArrayLengths(vals) {
		for i := range first {
			children := make([]any, len(vals))
			for j, v := range vals {
				children[j] = v.([]any)[i]
			}
			d.compare(path.child(i), children)
		}
		return
	}

	d.report(path, vals)
}

func (d *jsonDiff) compareKeys(path jsonPath, first map[string]any, vals []any) {
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		children := make([]any, len(vals))
		for j, v := range vals {
			child, ok := v.(map[string]any)[k]
			if !ok {
				children[j] = absent{}
				continue
			}
			children[j] = child
		}
		d.compare(path.child(k), children)
	}
}

func (d *jsonDiff) report(path jsonPath, vals []any) {
	obs := observation{path: JSONScheme + path.String(), values: make([]value, len(vals))}
	for i, v := range vals {
		obs.values[i] = jsonValue(v)
	}
	d.found = append(d.found, obs)
}

func jsonValue(v any) value {
	if _, ok := v.(absent); ok {
		return value{}
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		canonical = []byte(reflect.TypeOf(v).String())
	}
	display := string(canonical)
	if s, ok := v.(string); ok {
		display = s
	}
	return value{present: true, key: string(canonical), display: util.TruncateBody(display, maxSampleLength)}
}

func allDeepEqual(vals []any) bool {
	for _, v := range vals[1:] {
		if !reflect.DeepEqual(vals[0], v) {
			return false
		}
	}
	return true
}

func allObjects(vals []any) bool {
	for _, v := range vals {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}

func sameKeySets(vals []any) bool {
	first, ok := vals[0].(map[string]any)
	if !ok {
		return false
	}
	for _, v := range vals[1:] {
		m, ok := v.(map[string]any)
		if !ok || len(m) != len(first) {
			return false
		}
		for k := range first {
			if _, ok := m[k]; !ok {
				return false
			}
		}
	}
	return true
}

func sameArrayLengths(vals []any) bool {
	first, ok := vals[0].([]any)
	if !ok {
		return false
	}
	for _, v := range vals[1:] {
		a, ok := v.([]any)
		if !ok || len(a) != len(first) {
			return false
		}
	}
	return true
}
