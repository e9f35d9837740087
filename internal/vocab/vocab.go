// Package vocab builds deterministic item<->ID mappings from frequency counts.
//
// IDs are assigned in descending count order, with equal counts ordered by
// ascending string comparison. The same routine serves word and tag
// vocabularies.
package vocab

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

// ErrKeyNotFound is returned when an item is absent from a Mapping.
var ErrKeyNotFound = errors.New("key not found in vocabulary")

// KeyNotFoundError reports the missing item and its position in the looked-up
// sequence.
type KeyNotFoundError struct {
	Item     string
	Position int
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("item %q at position %d: %v", e.Item, e.Position, ErrKeyNotFound)
}

func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// Entry is an item with its occurrence count.
type Entry struct {
	Item  string `cbor:"item" json:"item"`
	Count int    `cbor:"count" json:"count"`
}

// compareEntries orders by (-Count, Item).
func compareEntries(a, b Entry) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}

	return strings.Compare(a.Item, b.Item)
}

// Counter is a frequency table. It is filled once and then passed to Build.
type Counter struct {
	counts map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add counts one occurrence of item.
func (c *Counter) Add(item string) { c.counts[item]++ }

// AddAll counts one occurrence of each item.
func (c *Counter) AddAll(items ...string) {
	for _, item := range items {
		c.counts[item]++
	}
}

// Count returns the number of occurrences of item.
func (c *Counter) Count(item string) int { return c.counts[item] }

// Len returns the number of distinct items.
func (c *Counter) Len() int { return len(c.counts) }

// Mapping is a bijection between items and contiguous IDs 0..Len()-1.
// It is immutable once built.
type Mapping struct {
	items  []string
	counts []int
	ids    map[string]int
}

// Build assigns IDs to every counted item in (-count, item) order.
func Build(c *Counter) *Mapping {
	heap := binaryheap.NewWith(compareEntries)
	for item, n := range c.counts {
		heap.Push(Entry{Item: item, Count: n})
	}

	m := &Mapping{
		items:  make([]string, 0, heap.Size()),
		counts: make([]int, 0, heap.Size()),
		ids:    make(map[string]int, heap.Size()),
	}

	for !heap.Empty() {
		e, _ := heap.Pop()
		m.ids[e.Item] = len(m.items)
		m.items = append(m.items, e.Item)
		m.counts = append(m.counts, e.Count)
	}

	return m
}

// FromItems rebuilds a mapping whose ID order is the order of items. Counts
// are unknown and reported as zero.
func FromItems(items []string) (*Mapping, error) {
	return FromEntries(entriesOf(items))
}

// FromEntries rebuilds a mapping from ID-ordered entries, as stored by
// Entries.
func FromEntries(entries []Entry) (*Mapping, error) {
	m := &Mapping{
		items:  make([]string, len(entries)),
		counts: make([]int, len(entries)),
		ids:    make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		if _, dup := m.ids[e.Item]; dup {
			return nil, fmt.Errorf("vocab: duplicate item %q at id %d", e.Item, i)
		}

		m.ids[e.Item] = i
		m.items[i] = e.Item
		m.counts[i] = e.Count
	}

	return m, nil
}

func entriesOf(items []string) []Entry {
	out := make([]Entry, len(items))
	for i, item := range items {
		out[i] = Entry{Item: item}
	}

	return out
}

// ID returns the ID of item.
func (m *Mapping) ID(item string) (int, bool) {
	id, ok := m.ids[item]
	return id, ok
}

// Item returns the item with the given ID.
func (m *Mapping) Item(id int) (string, bool) {
	if id < 0 || id >= len(m.items) {
		return "", false
	}

	return m.items[id], true
}

// Count returns the frequency recorded for id, or zero.
func (m *Mapping) Count(id int) int {
	if id < 0 || id >= len(m.counts) {
		return 0
	}

	return m.counts[id]
}

// Len returns the number of items.
func (m *Mapping) Len() int { return len(m.items) }

// Items returns the items in ID order.
func (m *Mapping) Items() []string {
	return append([]string(nil), m.items...)
}

// Entries returns items with their counts in ID order.
func (m *Mapping) Entries() []Entry {
	out := make([]Entry, len(m.items))
	for i, item := range m.items {
		out[i] = Entry{Item: item, Count: m.counts[i]}
	}

	return out
}

// Lookup maps every item to its ID. The first missing item yields a
// *KeyNotFoundError.
func (m *Mapping) Lookup(items []string) ([]int, error) {
	out := make([]int, len(items))
	for i, item := range items {
		id, ok := m.ids[item]
		if !ok {
			return nil, &KeyNotFoundError{Item: item, Position: i}
		}

		out[i] = id
	}

	return out, nil
}
