package geometry

import (
	"fmt"
	"maps"
)

// Dictionary is the key/value metadata attached to a topology.
type Dictionary map[string]any

// DictionaryByKeysValues zips keys and values into a Dictionary.
func DictionaryByKeysValues(keys []string, values []any) (Dictionary, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("dictionary: %d keys but %d values", len(keys), len(values))
	}
	d := make(Dictionary, len(keys))
	for i, k := range keys {
		d[k] = values[i]
	}
	return d, nil
}

// ValueAtKey returns the value stored under key, or nil.
func (d Dictionary) ValueAtKey(key string) any {
	return d[key]
}

func (d Dictionary) clone() Dictionary {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// SetDictionary returns a copy of t carrying d. The original is not modified.
func SetDictionary(t Topology, d Dictionary) Topology {
	if t == nil {
		return nil
	}
	return t.withDictionary(d.clone())
}

// AssignName labels t with a single "name" entry and returns the labelled copy.
func AssignName(t Topology, name string) Topology {
	d, _ := DictionaryByKeysValues([]string{"name"}, []any{name})
	return SetDictionary(t, d)
}

// NameOf returns the "name" entry of t's dictionary, or "".
func NameOf(t Topology) string {
	if t == nil {
		return ""
	}
	name, _ := t.Dictionary().ValueAtKey("name").(string)
	return name
}
