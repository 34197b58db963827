// Package reports holds the report collection and keeps it mirrored to a
// single persisted key-value slot.
package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tgienger/strack/internal/models"
)

const (
	// SlotKey is the settings key holding the serialized collection
	SlotKey = "stranger_tracker_reports_v1"

	// ExportFilename is the file name offered for exports
	ExportFilename = "reports.json"

	maxIDAttempts = 8
)

// Slot is the persisted key-value storage the store mirrors into.
// *db.DB satisfies it.
type Slot interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Fields are the user-editable parts of a report
type Fields struct {
	Title    string
	Location string
	Date     string
	Time     string
	Notes    string
}

// Store is the authoritative in-memory list of reports
type Store struct {
	slot    Slot
	reports []models.Report
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for timestamps and date filters
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how new report ids are produced
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewID returns a fresh collision-resistant report id
func NewID() string {
	return "id-" + uuid.NewString()
}

// New creates a store backed by slot. Call Load before using it.
func New(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot:    slot,
		reports: []models.Report{},
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted slot into memory. A missing, empty or malformed
// slot yields an empty collection; nothing is reported to the caller.
func (s *Store) Load() []models.Report {
	s.reports = []models.Report{}

	raw, err := s.slot.GetSetting(SlotKey)
	if err != nil {
		s.log.Error("reading report slot", zap.Error(err))
		return s.snapshot()
	}
	if strings.TrimSpace(raw) == "" {
		return s.snapshot()
	}

	loaded, err := decodeList([]byte(raw))
	if err != nil {
		s.log.Warn("discarding malformed report slot", zap.Error(err), zap.Int("bytes", len(raw)))
		return s.snapshot()
	}

	s.reports = loaded
	s.log.Debug("loaded reports", zap.Int("count", len(loaded)))
	return s.snapshot()
}

// Create validates f, prepends a new report and persists the collection
func (s *Store) Create(f Fields) (models.Report, error) {
	f, err := normalize(f)
	if err != nil {
		return models.Report{}, err
	}

	id, err := s.uniqueID()
	if err != nil {
		return models.Report{}, err
	}

	r := models.Report{
		ID:        id,
		Title:     f.Title,
		Location:  f.Location,
		Date:      f.Date,
		Time:      f.Time,
		Notes:     f.Notes,
		CreatedAt: models.Stamp(s.now()),
	}

	next := make([]models.Report, 0, len(s.reports)+1)
	next = append(next, r)
	next = append(next, s.reports...)
	if err := s.commit(next); err != nil {
		return models.Report{}, err
	}

	s.log.Debug("created report", zap.String("id", r.ID))
	return r, nil
}

// Update rewrites the fields of the report with the given id and stamps
// UpdatedAt. An unknown id is not an error: nothing changes and updated is
// false.
func (s *Store) Update(id string, f Fields) (updated bool, err error) {
	f, err = normalize(f)
	if err != nil {
		return false, err
	}

	idx := s.index(id)
	if idx < 0 {
		s.log.Debug("update of unknown report ignored", zap.String("id", id))
		return false, nil
	}

	next := slices.Clone(s.reports)
	r := &next[idx]
	r.Title = f.Title
	r.Location = f.Location
	r.Date = f.Date
	r.Time = f.Time
	r.Notes = f.Notes
	r.Datetime = ""
	r.UpdatedAt = models.Stamp(s.now())

	if err := s.commit(next); err != nil {
		return false, err
	}

	s.log.Debug("updated report", zap.String("id", id))
	return true, nil
}

// Delete removes every report with the given id and persists. Deleting an
// unknown id leaves the collection as it was.
func (s *Store) Delete(id string) (removed bool, err error) {
	next := slices.DeleteFunc(slices.Clone(s.reports), func(r models.Report) bool {
		return r.ID == id
	})
	removed = len(next) != len(s.reports)

	if err := s.commit(next); err != nil {
		return false, err
	}

	if removed {
		s.log.Debug("deleted report", zap.String("id", id))
	}
	return removed, nil
}

// Get returns the first report with the given id
func (s *Store) Get(id string) (models.Report, bool) {
	idx := s.index(id)
	if idx < 0 {
		return models.Report{}, false
	}
	return s.reports[idx], true
}

// Count returns the number of reports in the collection
func (s *Store) Count() int {
	return len(s.reports)
}

// List returns the reports matching f in collection order. The collection
// itself is never modified.
func (s *Store) List(f Filter) []models.Report {
	m := f.matcher(s.now())

	out := make([]models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if m(r) {
			out = append(out, r)
		}
	}
	return out
}

// Export returns the whole collection as indented JSON
func (s *Store) Export() ([]byte, error) {
	return encodeList(s.reports, "  ")
}

// Import parses data as a JSON array of reports and prepends them, in their
// given order, ahead of the existing collection. Records are neither
// validated nor deduplicated.
func (s *Store) Import(data []byte) ([]models.Report, error) {
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		return nil, &ImportError{Reason: "invalid JSON", Err: err}
	}

	incoming, err := decodeList(data)
	if err != nil {
		return nil, &ImportError{Reason: "expected a list of reports", Err: err}
	}

	next := make([]models.Report, 0, len(incoming)+len(s.reports))
	next = append(next, incoming...)
	next = append(next, s.reports...)
	if err := s.commit(next); err != nil {
		return nil, err
	}

	s.log.Info("imported reports", zap.Int("imported", len(incoming)), zap.Int("total", len(next)))
	return s.snapshot(), nil
}

// Clear empties the collection and persists the empty state
func (s *Store) Clear() error {
	if err := s.commit([]models.Report{}); err != nil {
		return err
	}
	s.log.Info("cleared all reports")
	return nil
}

// commit writes next to the slot and only then makes it the live collection
func (s *Store) commit(next []models.Report) error {
	if next == nil {
		next = []models.Report{}
	}

	data, err := encodeList(next, "")
	if err != nil {
		return err
	}
	if err := s.slot.SetSetting(SlotKey, string(data)); err != nil {
		s.log.Error("writing report slot", zap.Error(err))
		return fmt.Errorf("saving reports: %w", err)
	}

	s.reports = next
	return nil
}

func (s *Store) snapshot() []models.Report {
	return slices.Clone(s.reports)
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.reports, func(r models.Report) bool {
		return r.ID == id
	})
}

func (s *Store) uniqueID() (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && s.index(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("generating report id: %d collisions in a row", maxIDAttempts)
}

// normalize trims the free-text fields and enforces the required ones
func normalize(f Fields) (Fields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Location = strings.TrimSpace(f.Location)
	f.Notes = strings.TrimSpace(f.Notes)

	if f.Title == "" {
		return f, &ValidationError{Field: "title"}
	}
	if f.Location == "" {
		return f, &ValidationError{Field: "location"}
	}
	return f, nil
}

// encodeList writes list as JSON with <, > and & left as they are
func encodeList(list []models.Report, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(list); err != nil {
		return nil, fmt.Errorf("encoding reports: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeList decodes a JSON array of reports. Anything else is an error.
func decodeList(data []byte) ([]models.Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("top-level value is not an array")
	}

	var list []models.Report
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Report{}
	}
	return list, nil
}
