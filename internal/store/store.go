// Package store persists the sales history and the run state as JSON files.
//
// The history is append-only: Append only ever adds accepted sales to the end,
// stored entries are written back in their stored form, and every write goes through a temporary file that replaces the original in
// a single rename, so a reader never sees a partial file and a failed write
// leaves the previous history intact. There is a single writer per directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"salesledger/internal/assert"
	"salesledger/internal/chrono"
	"salesledger/internal/registry"
	"salesledger/internal/sale"
	"salesledger/internal/telemetry"
	"strings"
)

const (
	SalesFile = "vendas.json"
	StateFile = "state.json"
)

const (
	report_store_load_history = "store.load-history"
	report_store_load_state   = "store.load-state"
	report_store_append       = "store.append"
	report_store_save_state   = "store.save-state"
	report_store_preserve     = "store.preserve-malformed"
	report_store_history_size = "store.history-size"
)

// ErrMalformedHistory is returned by operations that refuse to run over a
// history file that does not parse as a JSON list.
var ErrMalformedHistory = errors.New("sales history is not a valid list of sales")

type Store struct {
	dir  string
	time chrono.API
	tel  telemetry.API
}

// NewStore opens the store rooted at dir, creating the directory and the
// default empty files when they are missing.
func NewStore(dir string, time chrono.API, tel telemetry.API) (Store, error) {
	assert.NotEmptyStr(dir)
	assert.NotNil(time)
	assert.NotNil(tel)

	s := Store{
		dir:  dir,
		time: time,
		tel:  telemetry.NewScopedAPI("store", tel),
	}

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return Store{}, fmt.Errorf("create data dir: %w", err)
	}
	err = ensureFile(s.SalesPath(), []byte("[]\n"))
	if err != nil {
		return Store{}, err
	}
	err = ensureFile(s.StatePath(), []byte(`{"knownIds": [], "lastRunAt": null, "lastReportAt": null}`+"\n"))
	if err != nil {
		return Store{}, err
	}
	return s, nil
}

func ensureFile(path string, content []byte) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return writeAtomic(path, content)
}

func (s Store) SalesPath() string {
	return filepath.Join(s.dir, SalesFile)
}

func (s Store) StatePath() string {
	return filepath.Join(s.dir, StateFile)
}

// writeAtomic writes data next to path and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// writeJSON writes value indented, without HTML escaping, so persisted
// entries passed as json.RawMessage keep their text.
func writeJSON(path string, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(value)
	if err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

// entry is one persisted sale. raw is its stored form and is written back
// as is, sale holds the fields decoded from it.
type entry struct {
	raw  json.RawMessage
	sale sale.Sale
}

// decodeEntry reads what it can of a stored sale. Entries written by older
// versions may carry fields of other types or fields Sale does not know,
// only the identity fields matter here so type mismatches are ignored.
func decodeEntry(raw json.RawMessage) sale.Sale {
	var s sale.Sale
	_ = json.Unmarshal(raw, &s)
	return s
}

func salesOf(entries []entry) []sale.Sale {
	out := make([]sale.Sale, len(entries))
	for i, e := range entries {
		out[i] = e.sale
	}
	return out
}

// readHistory returns (nil, nil) for a missing or blank file and wraps
// ErrMalformedHistory when the content is not a JSON list.
func (s Store) readHistory() ([]entry, error) {
	raw, err := os.ReadFile(s.SalesPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var list []json.RawMessage
	err = json.Unmarshal(raw, &list)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedHistory, err.Error())
	}
	history := make([]entry, len(list))
	for i, item := range list {
		history[i] = entry{raw: item, sale: decodeEntry(item)}
	}
	return history, nil
}

// Load returns the full history. It never fails, an unreadable or malformed
// file is reported as a warning and reads as an empty history.
func (s Store) Load() []sale.Sale {
	history, err := s.readHistory()
	if err != nil {
		s.tel.ReportWarning(report_store_load_history, err, s.SalesPath())
		return nil
	}
	return salesOf(history)
}

// Rehydrate rebuilds the registry from the full history and seeds it with the
// bounded key cache of the run state.
func (s Store) Rehydrate(state RunState) *registry.Registry {
	history := s.Load()
	reg := registry.FromHistory(history)
	reg.AddKeys(state.KnownIDs...)
	s.tel.ReportCount(report_store_history_size, int64(len(history)))
	return reg
}

// AppendResult describes what a call to Append did.
type AppendResult struct {
	Accepted []sale.Sale
	Counts   registry.Counts
	// Total is the size of the history after the append.
	Total int
}

// Append filters batch through reg and appends the accepted sales to the
// history. When reg is nil it is rebuilt from the history first.
//
// Registry keys are only committed once the new history is on disk, a failed
// write leaves both the file and reg as they were.
func (s Store) Append(batch []sale.Sale, reg *registry.Registry) (AppendResult, error) {
	history, err := s.readHistory()
	if errors.Is(err, ErrMalformedHistory) {
		s.tel.ReportWarning(report_store_load_history, err, s.SalesPath())
		err = s.preserveMalformed()
		if err != nil {
			s.tel.ReportBroken(report_store_append, err)
			return AppendResult{}, err
		}
		history = nil
	} else if err != nil {
		s.tel.ReportBroken(report_store_append, err)
		return AppendResult{}, fmt.Errorf("read history: %w", err)
	}

	if reg == nil {
		reg = registry.FromHistory(salesOf(history))
	}

	txn := reg.Begin()
	counts := txn.Filter(batch)
	accepted := txn.Accepted()
	result := AppendResult{
		Accepted: accepted,
		Counts:   counts,
		Total:    len(history),
	}
	if len(accepted) == 0 {
		return result, nil
	}

	// stored entries are written back untouched, only the accepted sales are
	// encoded
	next := make([]json.RawMessage, 0, len(history)+len(accepted))
	for _, e := range history {
		next = append(next, e.raw)
	}
	for _, sold := range accepted {
		raw, err := json.Marshal(sold)
		if err != nil {
			return AppendResult{}, fmt.Errorf("encode sale %s: %w", sold.ID, err)
		}
		next = append(next, raw)
	}

	err = writeJSON(s.SalesPath(), next)
	if err != nil {
		s.tel.ReportBroken(report_store_append, err, len(accepted))
		return AppendResult{}, fmt.Errorf("write history: %w", err)
	}
	txn.Commit()

	result.Total = len(next)
	s.tel.ReportCount(report_store_history_size, int64(result.Total))
	return result, nil
}

// preserveMalformed moves an unparseable history aside so the next write does
// not destroy it.
func (s Store) preserveMalformed() error {
	target := fmt.Sprintf("%s.malformed-%s", s.SalesPath(), s.time.Now().Format("20060102-150405"))
	err := os.Rename(s.SalesPath(), target)
	if err != nil {
		return fmt.Errorf("preserve malformed history: %w", err)
	}
	s.tel.ReportWarning(report_store_preserve, target)
	return nil
}
