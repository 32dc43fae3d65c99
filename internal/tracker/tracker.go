// Package tracker computes field-level differences between two versions of
// an entity for the audit log.
package tracker

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	"hr-service/internal/domain"
)

// Document is an entity in JSON shape: nil, bool, numbers, string,
// []interface{} and map[string]interface{} values. Other string-keyed maps
// and slices or arrays are normalized the same way.
type Document = map[string]interface{}

// idFields are stripped from every nested mapping before comparison.
var idFields = []string{"id", "_id"}

// excludedFields are bookkeeping, not business data.
var excludedFields = map[string]struct{}{
	"id":        {},
	"_id":       {},
	"__v":       {},
	"createdAt": {},
	"updatedAt": {},
	"updatedBy": {},
}

// ComputeChanges returns one FieldChange per top-level field whose value
// differs between before and after. A key missing on one side and null on
// the other counts as a change.
//
// Keys of before come first, then keys only present in after. Go maps carry
// no insertion order, so each group is sorted lexically instead of following
// the order the fields were written in.
func ComputeChanges(before, after Document) []domain.FieldChange {
	oldDoc := normalizeDocument(before)
	newDoc := normalizeDocument(after)

	var changes []domain.FieldChange
	for _, field := range unionKeys(oldDoc, newDoc) {
		if _, skip := excludedFields[field]; skip {
			continue
		}

		oldValue := encodeField(oldDoc, field)
		newValue := encodeField(newDoc, field)
		if bytes.Equal(oldValue, newValue) {
			continue
		}

		changes = append(changes, domain.FieldChange{
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}

	return changes
}

func unionKeys(before, after Document) []string {
	keys := sortedKeys(before)
	var added []string
	for k := range after {
		if _, ok := before[k]; !ok {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	return append(keys, added...)
}

func sortedKeys(doc Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeField returns the canonical JSON of doc[field], or nil when the key is
// absent or its value cannot be encoded.
func encodeField(doc Document, field string) json.RawMessage {
	v, ok := doc[field]
	if !ok {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

// identity keys a map or slice by reference. Slices sharing a backing array
// only collide when their lengths match too.
type identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

type normalizer struct {
	visited map[identity]struct{}
}

func normalizeDocument(doc Document) Document {
	n := &normalizer{visited: make(map[identity]struct{})}
	v, ok := n.normalize(doc)
	if !ok {
		return Document{}
	}
	out, _ := v.(Document)
	if out == nil {
		return Document{}
	}
	return out
}

// normalize returns the sanitized value and whether it is present. A map or
// slice seen earlier in the same pass is reported as absent. Map keys are
// walked in sorted order so the first sighting of a shared value is stable.
func (n *normalizer) normalize(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		if val == nil {
			return val, true
		}
		if !n.visit(reflect.ValueOf(val)) {
			return nil, false
		}
		out := make(map[string]interface{}, len(val))
		for _, k := range sortedKeys(val) {
			if isIDField(k) {
				continue
			}
			if clean, ok := n.normalize(val[k]); ok {
				out[k] = clean
			}
		}
		return out, true
	case []interface{}:
		if val == nil {
			return val, true
		}
		if !n.visit(reflect.ValueOf(val)) {
			return nil, false
		}
		return n.normalizeElements(reflect.ValueOf(val)), true
	case nil, bool, string, float64, float32, int, int64, int32, json.Number, json.RawMessage, []byte:
		return v, true
	default:
		return n.normalizeReflect(reflect.ValueOf(v), v)
	}
}

// normalizeReflect handles typed containers such as map[string]string or
// []map[string]interface{}. Anything else passes through unchanged.
func (n *normalizer) normalizeReflect(rv reflect.Value, v interface{}) (interface{}, bool) {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return v, true
		}
		switch rv.Elem().Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
			if !n.visit(rv) {
				return nil, false
			}
			return n.normalize(rv.Elem().Interface())
		}
		return v, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v, true
		}
		if rv.IsNil() {
			return nil, true
		}
		if !n.visit(rv) {
			return nil, false
		}
		keys := make([]string, 0, rv.Len())
		values := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			keys = append(keys, k)
			values[k] = iter.Value()
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			if isIDField(k) {
				continue
			}
			if clean, ok := n.normalize(values[k].Interface()); ok {
				out[k] = clean
			}
		}
		return out, true
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, true
		}
		if rv.IsNil() {
			return nil, true
		}
		if !n.visit(rv) {
			return nil, false
		}
		return n.normalizeElements(rv), true
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, true
		}
		return n.normalizeElements(rv), true
	default:
		return v, true
	}
}

func (n *normalizer) normalizeElements(rv reflect.Value) []interface{} {
	out := make([]interface{}, rv.Len())
	for i := range out {
		// an absent element serializes as null
		out[i], _ = n.normalize(rv.Index(i).Interface())
	}
	return out
}

// visit records rv and reports false if it was already seen. Empty maps and
// slices carry no identity.
func (n *normalizer) visit(rv reflect.Value) bool {
	key := identity{kind: rv.Kind(), ptr: rv.Pointer()}
	if rv.Kind() != reflect.Pointer {
		if rv.Len() == 0 {
			return true
		}
		key.len = rv.Len()
	}
	if _, seen := n.visited[key]; seen {
		return false
	}
	n.visited[key] = struct{}{}
	return true
}

func isIDField(key string) bool {
	for _, f := range idFields {
		if key == f {
			return true
		}
	}
	return false
}
