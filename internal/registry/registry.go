// Package registry tracks every identity key ever seen and decides whether a
// sale is new.
//
// A sale is a duplicate when any one of its strong keys is already known, or
// when its legacy id was recorded as the primary id of an earlier sale. Checks
// run against a Txn, so a batch either commits all of its keys or none.
package registry

import (
	"salesledger/internal/sale"
	"strings"
)

// Verdict is the outcome of admitting one sale.
type Verdict int

const (
	Accepted Verdict = iota
	Duplicate
	Discarded
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Discarded:
		return "discarded"
	}
	return "unknown"
}

type set map[string]struct{}

func (s set) has(key string) bool {
	_, ok := s[key]
	return ok
}

// Registry is the set of strong keys plus the primary ids they came with.
// It is owned by the cycle orchestrator and is not safe for concurrent use.
type Registry struct {
	keys    set
	primary set
}

func New() *Registry {
	return &Registry{
		keys:    make(set),
		primary: make(set),
	}
}

// FromHistory builds a registry by scanning the full history.
func FromHistory(history []sale.Sale) *Registry {
	r := New()
	for _, s := range history {
		r.record(s)
	}
	return r
}

func (r *Registry) record(s sale.Sale) {
	for _, k := range s.StrongKeys() {
		r.keys[k] = struct{}{}
	}
	for _, id := range s.PrimaryIDs() {
		r.primary[id] = struct{}{}
	}
}

// AddKeys seeds the registry with keys from the bounded key cache.
func (r *Registry) AddKeys(keys ...string) {
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			r.keys[k] = struct{}{}
		}
	}
}

// Has reports whether key is a known strong key.
func (r *Registry) Has(key string) bool {
	return r.keys.has(strings.TrimSpace(key))
}

// Len is the number of known strong keys.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Txn stages admissions against a registry. Nothing reaches the registry
// until Commit is called, dropping the Txn discards every staged key.
type Txn struct {
	reg      *Registry
	keys     set
	primary  set
	accepted []sale.Sale
}

func (r *Registry) Begin() *Txn {
	return &Txn{
		reg:     r,
		keys:    make(set),
		primary: make(set),
	}
}

func (t *Txn) knownKey(k string) bool {
	return t.keys.has(k) || t.reg.keys.has(k)
}

func (t *Txn) knownPrimary(id string) bool {
	return t.primary.has(id) || t.reg.primary.has(id)
}

// Admit checks s against everything known so far, including sales admitted
// earlier in the same Txn, and stages its keys when it is accepted.
func (t *Txn) Admit(s sale.Sale) Verdict {
	keys := s.StrongKeys()
	if len(keys) == 0 {
		return Discarded
	}
	for _, k := range keys {
		if t.knownKey(k) {
			return Duplicate
		}
	}
	if legacy := strings.TrimSpace(s.LegacyID); legacy != "" && t.knownPrimary(legacy) {
		return Duplicate
	}

	for _, k := range keys {
		t.keys[k] = struct{}{}
	}
	for _, id := range s.PrimaryIDs() {
		t.primary[id] = struct{}{}
	}
	t.accepted = append(t.accepted, s)
	return Accepted
}

// Accepted returns the sales admitted so far, in admission order.
func (t *Txn) Accepted() []sale.Sale {
	return t.accepted
}

// Commit publishes every staged key to the registry.
func (t *Txn) Commit() {
	for k := range t.keys {
		t.reg.keys[k] = struct{}{}
	}
	for id := range t.primary {
		t.reg.primary[id] = struct{}{}
	}
	t.keys = make(set)
	t.primary = make(set)
}

// Counts tallies the verdicts of a filtered batch.
type Counts struct {
	Accepted   int
	Duplicates int
	Discarded  int
}

// Filter admits every sale of batch in order and returns the tally.
func (t *Txn) Filter(batch []sale.Sale) Counts {
	var c Counts
	for _, s := range batch {
		switch t.Admit(s) {
		case Accepted:
			c.Accepted++
		case Duplicate:
			c.Duplicates++
		case Discarded:
			c.Discarded++
		}
	}
	return c
}
