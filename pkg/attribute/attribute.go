// Package attribute implements typed message extensions (spec §3, §4.5): a
// bare attribute id with optional arguments, collected into an id-ordered
// set with at most one entry per id.
package attribute

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

const (
	// AsyncID is the attribute carrying an opaque async dispatch token.
	AsyncID uint32 = 1
	// DelegationID is the attribute carrying a certificate delegation chain.
	DelegationID uint32 = 2
)

// Attribute is (id, arguments): a bare unsigned integer on the wire decodes
// to an Attribute with no arguments; an array decodes to [id, arg, ...].
type Attribute struct {
	ID        uint32
	Arguments []cbor.RawMessage
}

// New builds an argument-free attribute.
func New(id uint32) Attribute { return Attribute{ID: id} }

// WithArguments builds an attribute carrying pre-encoded CBOR arguments.
func WithArguments(id uint32, args ...cbor.RawMessage) Attribute {
	return Attribute{ID: id, Arguments: args}
}

func (a Attribute) MarshalCBOR() ([]byte, error) {
	if len(a.Arguments) == 0 {
		return cbor.Marshal(a.ID)
	}
	items := make([]any, 0, 1+len(a.Arguments))
	items = append(items, a.ID)
	for _, arg := range a.Arguments {
		items = append(items, arg)
	}
	return cbor.Marshal(items)
}

func (a *Attribute) UnmarshalCBOR(data []byte) error {
	var plain uint32
	if err := cbor.Unmarshal(data, &plain); err == nil {
		a.ID = plain
		a.Arguments = nil
		return nil
	}
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("attribute: neither a bare integer nor an array: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("attribute: array form requires at least an id")
	}
	var id uint32
	if err := cbor.Unmarshal(items[0], &id); err != nil {
		return fmt.Errorf("attribute: first array element must be the id: %w", err)
	}
	a.ID = id
	a.Arguments = items[1:]
	return nil
}

// Set is an id-ordered collection with at most one attribute per id.
type Set struct {
	byID map[uint32]Attribute
}

// NewSet builds a Set from attrs, erroring on a duplicate id.
func NewSet(attrs ...Attribute) (Set, error) {
	s := Set{byID: make(map[uint32]Attribute, len(attrs))}
	for _, a := range attrs {
		if _, exists := s.byID[a.ID]; exists {
			return Set{}, fmt.Errorf("attribute: duplicate attribute id %d", a.ID)
		}
		s.byID[a.ID] = a
	}
	return s, nil
}

// HasID reports whether id is present.
func (s Set) HasID(id uint32) bool {
	_, ok := s.byID[id]
	return ok
}

// Get returns the attribute for id.
func (s Set) Get(id uint32) (Attribute, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Sorted returns the set's attributes ordered by ascending id.
func (s Set) Sorted() []Attribute {
	ids := make([]uint32, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Attribute, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
	}
	return out
}

// Len reports the number of distinct attribute ids in the set.
func (s Set) Len() int { return len(s.byID) }

func (s Set) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s.Sorted())
}

func (s *Set) UnmarshalCBOR(data []byte) error {
	var items []Attribute
	if err := cbor.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("attribute: set is not an array: %w", err)
	}
	built, err := NewSet(items...)
	if err != nil {
		return err
	}
	*s = built
	return nil
}
