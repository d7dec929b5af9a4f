// Package memory implements the ledger ports in process memory. It backs
// the "memory" data backend for local development and the handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradebook/internal/core"
	"tradebook/internal/ledger"
	"tradebook/pkg/id"
)

type Store struct {
	mu       sync.Mutex
	records  map[string]core.Record
	accounts map[string]core.Account
	moods    map[string]core.MoodEntry
	mirror   map[string]core.Record
}

func New() *Store {
	return &Store{
		records:  make(map[string]core.Record),
		accounts: make(map[string]core.Account),
		moods:    make(map[string]core.MoodEntry),
		mirror:   make(map[string]core.Record),
	}
}

var _ ledger.RecordMirror = (*Store)(nil)

// CreateRecord validates and stores the record, assigning an ID when absent.
func (s *Store) CreateRecord(_ context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = id.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.records[r.ID] = r
	return r.ID, nil
}

func (s *Store) UpdateRecord(_ context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[r.ID]
	if !ok || existing.Deleted {
		return ledger.ErrNotFound
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.records[r.ID] = r
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID]
	if !ok || r.Deleted {
		return ledger.ErrNotFound
	}
	r.Deleted = true
	r.DeletedAt = time.Now().UTC()
	s.records[recordID] = r
	return nil
}

func (s *Store) RestoreRecord(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID]
	if !ok || !r.Deleted {
		return ledger.ErrNotFound
	}
	r.Deleted = false
	r.DeletedAt = time.Time{}
	r.UpdatedAt = time.Now().UTC()
	s.records[recordID] = r
	return nil
}

func (s *Store) GetRecord(_ context.Context, recordID string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID]
	if !ok {
		return core.Record{}, ledger.ErrNotFound
	}
	return r, nil
}

// ListRecords returns active records matching the filter, oldest first.
func (s *Store) ListRecords(_ context.Context, f ledger.RecordFilter) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Record
	for _, r := range s.records {
		if r.Deleted {
			continue
		}
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		if f.Instrument != "" && r.Kind == core.KindTrade && r.Instrument != f.Instrument {
			continue
		}
		out = append(out, r)
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) ListArchive(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Record
	for _, r := range s.records {
		if r.Deleted {
			out = append(out, r)
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = id.New()
	}
	a.CreatedAt = time.Now().UTC()
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InitialBalance(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum float64
	for _, a := range s.accounts {
		sum += a.InitialBalance
	}
	return sum, nil
}

func (s *Store) CreateMood(_ context.Context, e core.MoodEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = id.New()
	}
	e.Score = e.Mood.Score()
	e.CreatedAt = time.Now().UTC()
	s.moods[e.ID] = e
	return e.ID, nil
}

func (s *Store) ListMoods(_ context.Context, from, to time.Time) ([]core.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.MoodEntry
	for _, e := range s.moods {
		if e.Deleted {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DeleteMood(_ context.Context, moodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.moods[moodID]
	if !ok || e.Deleted {
		return ledger.ErrNotFound
	}
	e.Deleted = true
	s.moods[moodID] = e
	return nil
}

// AppendRecord upserts the record into the in-memory mirror, one entry
// per ID, matching the sheet adapter's contract.
func (s *Store) AppendRecord(_ context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror[r.ID] = r
	return "memory:" + r.ID, nil
}

// RemoveRecord drops the record from the mirror. Removals are idempotent.
func (s *Store) RemoveRecord(_ context.Context, r core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mirror, r.ID)
	return nil
}

func sortByDate(records []core.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date.Equal(records[j].Date) {
			return records[i].ID < records[j].ID
		}
		return records[i].Date.Before(records[j].Date)
	})
}
