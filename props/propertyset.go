package props

import "sort"

// PropertySet is a named collection of string properties. It is a
// disconnected snapshot: changes reach the store only through Storage.Store.
// A PropertySet is not safe for concurrent mutation.
type PropertySet struct {
	name       string
	properties map[string]string
}

// NewPropertySet returns an empty set called name.
func NewPropertySet(name string) *PropertySet {
	return &PropertySet{
		name:       name,
		properties: make(map[string]string),
	}
}

// Name returns the name of the set.
func (p *PropertySet) Name() string {
	return p.name
}

// Set assigns value to key, returning the value it replaced, if any.
func (p *PropertySet) Set(key, value string) (previous string, replaced bool) {
	previous, replaced = p.properties[key]
	p.properties[key] = value
	return previous, replaced
}

// Remove deletes key, returning the value it held, if any.
func (p *PropertySet) Remove(key string) (previous string, removed bool) {
	previous, removed = p.properties[key]
	delete(p.properties, key)
	return previous, removed
}

// Property returns the value of key.
func (p *PropertySet) Property(key string) (string, bool) {
	value, ok := p.properties[key]
	return value, ok
}

// Properties returns the keys of the set in sorted order. The slice is a
// copy owned by the caller.
func (p *PropertySet) Properties() []string {
	keys := make([]string, 0, len(p.properties))
	for key := range p.properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// AsMap returns a copy of all properties.
func (p *PropertySet) AsMap() map[string]string {
	m := make(map[string]string, len(p.properties))
	for k, v := range p.properties {
		m[k] = v
	}
	return m
}

// Len returns the number of properties.
func (p *PropertySet) Len() int {
	return len(p.properties)
}
