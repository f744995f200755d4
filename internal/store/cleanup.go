package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"salesledger/internal/sale"
	"slices"
	"strings"
)

type KeepPolicy string

const (
	KeepFirst KeepPolicy = "first"
	KeepLast  KeepPolicy = "last"
)

func ParseKeepPolicy(value string) (KeepPolicy, error) {
	switch KeepPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", KeepFirst:
		return KeepFirst, nil
	case KeepLast:
		return KeepLast, nil
	}
	return "", fmt.Errorf("unknown keep policy %q, expected first or last", value)
}

type CleanupOptions struct {
	Keep KeepPolicy
	// RewriteKeyCache replaces the key cache of the run state with the ids of
	// the cleaned history.
	RewriteKeyCache bool
}

type CleanupResult struct {
	Removed int
	Total   int
}

var longNumberRegex = regexp.MustCompile(`\b\d{10,}\b`)

// DedupeKey is the key cleanup groups history entries by: the first long
// number in the id, else in the product text, else the literal id, else the
// product, client and timestamp joined together.
func DedupeKey(s sale.Sale) string {
	if m := longNumberRegex.FindString(s.ID); m != "" {
		return m
	}
	if m := longNumberRegex.FindString(s.Produto); m != "" {
		return m
	}
	if s.ID != "" {
		return s.ID
	}
	return strings.Join([]string{
		strings.TrimSpace(s.Produto),
		strings.TrimSpace(s.Cliente),
		strings.TrimSpace(s.DataHora),
	}, "|")
}

// Dedupe keeps one entry per DedupeKey. With KeepLast the history is reversed,
// deduped and reversed back, so the latest entry of each key survives in its
// original position relative to the others.
func Dedupe(history []sale.Sale, keep KeepPolicy) []sale.Sale {
	kept := dedupeIndexes(history, keep)
	out := make([]sale.Sale, len(kept))
	for i, at := range kept {
		out[i] = history[at]
	}
	return out
}

// dedupeIndexes returns the positions Dedupe keeps, in history order.
func dedupeIndexes(history []sale.Sale, keep KeepPolicy) []int {
	order := make([]int, len(history))
	for i := range history {
		order[i] = i
	}
	if keep == KeepLast {
		slices.Reverse(order)
	}

	seen := make(map[string]struct{}, len(history))
	kept := make([]int, 0, len(history))
	for _, at := range order {
		key := DedupeKey(history[at])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, at)
	}

	if keep == KeepLast {
		slices.Reverse(kept)
	}
	return kept
}

// Cleanup rewrites the history with one entry per dedupe key. Kept entries
// are written back in their stored form. Unlike Load it refuses to touch a
// history that does not parse and returns ErrMalformedHistory instead.
func (s Store) Cleanup(opts CleanupOptions) (CleanupResult, error) {
	history, err := s.readHistory()
	if err != nil {
		return CleanupResult{}, err
	}

	kept := dedupeIndexes(salesOf(history), opts.Keep)
	cleaned := make([]json.RawMessage, len(kept))
	ids := make([]string, 0, len(kept))
	for i, at := range kept {
		cleaned[i] = history[at].raw
		ids = append(ids, history[at].sale.ID)
	}
	err = writeJSON(s.SalesPath(), cleaned)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("write cleaned history: %w", err)
	}

	if opts.RewriteKeyCache {
		state := s.LoadState()
		state.KnownIDs = nil
		state.Remember(ids...)
		err = s.SaveState(state)
		if err != nil {
			return CleanupResult{}, err
		}
	}

	return CleanupResult{
		Removed: len(history) - len(cleaned),
		Total:   len(cleaned),
	}, nil
}
