package descriptor

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attributes is an ordered key/value view over the parenthesized suffix of a
// descriptor line. Bare flags map to the empty string.
type Attributes struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewAttributes returns an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{m: orderedmap.New[string, string]()}
}

// ParseAttributes tokenizes an attribute string.
//
//	"attrib1=value1,attrib2=value2,isProvider,order=3"
//
// yields attrib1=value1, attrib2=value2, isProvider="", order=3 in that order.
// Later duplicates overwrite the value but keep the first position.
func ParseAttributes(s string) *Attributes {
	attrs := NewAttributes()
	if s == "" {
		return attrs
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.IndexByte(part, '='); idx > 0 {
			attrs.Set(strings.TrimSpace(part[:idx]), strings.TrimSpace(part[idx+1:]))
		} else {
			attrs.Set(part, "")
		}
	}
	return attrs
}

// Set stores a value.
func (a *Attributes) Set(key, value string) {
	a.m.Set(key, value)
}

// Get returns the value for key and whether it was present.
func (a *Attributes) Get(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	return a.m.Get(key)
}

// Has reports whether key is present, flag or not.
func (a *Attributes) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Len()
}

// Keys returns the keys in declaration order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	keys := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map returns an unordered copy.
func (a *Attributes) Map() map[string]string {
	out := make(map[string]string, a.Len())
	if a == nil {
		return out
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// Clone returns an independent copy.
func (a *Attributes) Clone() *Attributes {
	c := NewAttributes()
	if a == nil {
		return c
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		c.m.Set(pair.Key, pair.Value)
	}
	return c
}

// String renders the attributes back into descriptor syntax.
func (a *Attributes) String() string {
	if a.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == "" {
			parts = append(parts, pair.Key)
			continue
		}
		parts = append(parts, pair.Key+"="+pair.Value)
	}
	return strings.Join(parts, ",")
}
