// Package metadata models the nested key/value tree a media probe extracts
// from an image file, plus the matching rules used by metadata filters.
//
// A tree is an ordered mapping whose values are either scalars or nested
// trees, to arbitrary depth. Lookups are case-insensitive on key names.
package metadata

import "strings"

// Node is a value in the tree: either a Scalar or a nested *Tree.
type Node interface {
	node()
}

// Scalar is a leaf value carrying its canonical string form.
type Scalar struct {
	Text string
}

func (Scalar) node() {}

// Field is a single named entry in a tree.
type Field struct {
	Name  string
	Value Node
}

// Tree is an ordered mapping of field names to nodes.
type Tree struct {
	fields []Field
}

func (*Tree) node() {}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Set appends or replaces the named field, preserving insertion order.
func (t *Tree) Set(name string, value Node) {
	for i := range t.fields {
		if strings.EqualFold(t.fields[i].Name, name) {
			t.fields[i].Value = value
			return
		}
	}
	t.fields = append(t.fields, Field{Name: name, Value: value})
}

// SetScalar appends or replaces a leaf field.
func (t *Tree) SetScalar(name, text string) {
	t.Set(name, Scalar{Text: text})
}

// Fields returns the entries in insertion order.
func (t *Tree) Fields() []Field {
	return t.fields
}

// Len reports the number of direct fields.
func (t *Tree) Len() int {
	return len(t.fields)
}

// Find locates the first scalar stored under name anywhere in the tree.
// The current level's scalars are examined before any subtree; subtrees are
// queued and visited in order, so shallow matches win over deep ones.
func (t *Tree) Find(name string) (string, bool) {
	queue := []*Tree{t}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, field := range current.fields {
			switch value := field.Value.(type) {
			case Scalar:
				if strings.EqualFold(field.Name, name) {
					return value.Text, true
				}
			case *Tree:
				queue = append(queue, value)
			}
		}
	}
	return "", false
}

// FilterSpec maps lowercased property names to expected values. A tree
// matches only if every key is satisfied by some scalar, at any depth, whose
// string form equals the expected value case-insensitively.
type FilterSpec map[string]string

// Match reports whether the tree satisfies every constraint in spec.
// Traversal stops as soon as all keys are satisfied.
func (t *Tree) Match(spec FilterSpec) bool {
	if len(spec) == 0 {
		return true
	}
	remaining := len(spec)
	satisfied := make(map[string]bool, len(spec))

	queue := []*Tree{t}
	for len(queue) > 0 && remaining > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, field := range current.fields {
			switch value := field.Value.(type) {
			case Scalar:
				key := strings.ToLower(field.Name)
				want, ok := spec[key]
				if !ok || satisfied[key] {
					continue
				}
				if strings.EqualFold(strings.TrimSpace(value.Text), strings.TrimSpace(want)) {
					satisfied[key] = true
					remaining--
					if remaining == 0 {
						return true
					}
				}
			case *Tree:
				queue = append(queue, value)
			}
		}
	}
	return remaining == 0
}

// ParseFilterArg parses a single "key=value" CLI constraint into its
// lowercased key and raw expected value.
func ParseFilterArg(arg string) (string, string, bool) {
	idx := strings.IndexByte(arg, '=')
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(arg[:idx]))
	value := strings.TrimSpace(arg[idx+1:])
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}
