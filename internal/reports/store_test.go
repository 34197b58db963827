package reports

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tgienger/strack/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// memSlot is an in-memory Slot that counts writes and can be made to fail.
type memSlot struct {
	values  map[string]string
	writes  int
	failSet error
	failGet error
}

func newMemSlot() *memSlot {
	return &memSlot{values: map[string]string{}}
}

func (m *memSlot) GetSetting(key string) (string, error) {
	if m.failGet != nil {
		return "", m.failGet
	}
	return m.values[key], nil
}

func (m *memSlot) SetSetting(key, value string) error {
	if m.failSet != nil {
		return m.failSet
	}
	m.writes++
	m.values[key] = value
	return nil
}

func newTestStore(t *testing.T, slot *memSlot, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s := New(slot, opts...)
	s.Load()
	return s
}

func mustCreate(t *testing.T, s *Store, title, location string) models.Report {
	t.Helper()
	r, err := s.Create(Fields{Title: title, Location: location})
	require.NoError(t, err)
	return r
}

func ids(list []models.Report) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}

func TestCreate_LostWallet(t *testing.T) {
	s := newTestStore(t, newMemSlot())

	r, err := s.Create(Fields{Title: "Lost wallet", Location: "Central Park"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Count())
	assert.Regexp(t, regexp.MustCompile(`^id-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`), r.ID)
	assert.Equal(t, "2026-10-16T12:00:00.000Z", r.CreatedAt)
	assert.Empty(t, r.UpdatedAt)

	created, ok := r.Created()
	require.True(t, ok)
	assert.True(t, created.Equal(testNow))
}

func TestCreate_PrependsWithUniqueIDs(t *testing.T) {
	s := newTestStore(t, newMemSlot())

	seen := map[string]bool{}
	for i := range 20 {
		r := mustCreate(t, s, fmt.Sprintf("title %d", i), "somewhere")
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true

		list := s.List(Filter{})
		assert.Equal(t, r.ID, list[0].ID, "new report must be first")
	}
	assert.Equal(t, 20, s.Count())
}

func TestCreate_TrimsFields(t *testing.T) {
	s := newTestStore(t, newMemSlot())

	r, err := s.Create(Fields{Title: "  Bike  ", Location: "\tStation\n", Notes: "  red  ", Date: "2026-10-01", Time: "08:15"})
	require.NoError(t, err)

	assert.Equal(t, "Bike", r.Title)
	assert.Equal(t, "Station", r.Location)
	assert.Equal(t, "red", r.Notes)
	assert.Equal(t, "2026-10-01", r.Date)
	assert.Equal(t, "08:15", r.Time)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		fields   Fields
		badField string
	}{
		{"empty title", Fields{Title: "", Location: "Park"}, "title"},
		{"blank title", Fields{Title: "   ", Location: "Park"}, "title"},
		{"empty location", Fields{Title: "Wallet", Location: ""}, "location"},
		{"blank location", Fields{Title: "Wallet", Location: "\t \n"}, "location"},
		{"both empty", Fields{}, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := newMemSlot()
			s := newTestStore(t, slot)
			existing := mustCreate(t, s, "Keep", "Me")
			writes := slot.writes

			_, err := s.Create(tt.fields)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.badField, verr.Field)
			assert.Equal(t, []string{existing.ID}, ids(s.List(Filter{})))
			assert.Equal(t, writes, slot.writes, "failed create must not persist")
		})
	}
}

func TestUpdate_KeepsIdentityAndPosition(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	a := mustCreate(t, s, "A", "loc a")
	b := mustCreate(t, s, "B", "loc b")
	c := mustCreate(t, s, "C", "loc c")

	later := testNow.Add(2 * time.Hour)
	s.now = func() time.Time { return later }

	ok, err := s.Update(b.ID, Fields{Title: "B2", Location: "loc b2", Date: "2026-10-15", Time: "10:00", Notes: "seen"})
	require.NoError(t, err)
	require.True(t, ok)

	list := s.List(Filter{})
	require.Equal(t, []string{c.ID, b.ID, a.ID}, ids(list))

	got := list[1]
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.CreatedAt, got.CreatedAt)
	assert.Equal(t, "B2", got.Title)
	assert.Equal(t, "loc b2", got.Location)
	assert.Equal(t, "2026-10-15", got.Date)
	assert.Equal(t, "10:00", got.Time)
	assert.Equal(t, "seen", got.Notes)
	assert.Equal(t, models.Stamp(later), got.UpdatedAt)
}

func TestUpdate_UnknownIDLeavesSlotUntouched(t *testing.T) {
	slot := newMemSlot()
	s := newTestStore(t, slot)
	mustCreate(t, s, "A", "B")

	before := slot.values[SlotKey]
	writes := slot.writes

	ok, err := s.Update("missing", Fields{Title: "X", Location: "Y"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, slot.values[SlotKey])
	assert.Equal(t, writes, slot.writes)
}

func TestUpdate_Validation(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	r := mustCreate(t, s, "A", "B")

	_, err := s.Update(r.ID, Fields{Title: "A", Location: " "})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "location", verr.Field)

	got, ok := s.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestDelete(t *testing.T) {
	slot := newMemSlot()
	s := newTestStore(t, slot)
	a := mustCreate(t, s, "A", "a")
	b := mustCreate(t, s, "B", "b")

	removed, err := s.Delete(a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{b.ID}, ids(s.List(Filter{})))

	_, ok := s.Get(a.ID)
	assert.False(t, ok)

	removed, err = s.Delete("nope")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []string{b.ID}, ids(s.List(Filter{})))
}

func TestList_AllReturnsEverythingInOrder(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	a := mustCreate(t, s, "A", "a")
	b := mustCreate(t, s, "B", "b")

	got := s.List(Filter{Search: "", Range: RangeAll})
	assert.Equal(t, []string{b.ID, a.ID}, ids(got))
}

func TestList_Search(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	inTitle := mustCreate(t, s, "xxABCxx", "park")
	inLocation := mustCreate(t, s, "phone", "Abc street")
	inNotes, err := s.Create(Fields{Title: "keys", Location: "bus", Notes: "near aBc"})
	require.NoError(t, err)
	mustCreate(t, s, "ab c", "nothing")

	got := s.List(Filter{Search: "abc", Range: RangeAll})
	assert.Equal(t, []string{inNotes.ID, inLocation.ID, inTitle.ID}, ids(got))

	got = s.List(Filter{Search: "  ABC ", Range: RangeAll})
	assert.Len(t, got, 3)
}

func TestList_DoesNotMutate(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	mustCreate(t, s, "A", "a")
	mustCreate(t, s, "B", "b")

	filtered := s.List(Filter{Search: "a"})
	require.Len(t, filtered, 1)
	filtered[0].Title = "changed"

	assert.Equal(t, 2, s.Count())
	for _, r := range s.List(Filter{}) {
		assert.NotEqual(t, "changed", r.Title)
	}
}

func TestList_DateRanges(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	create := func(title, date string) models.Report {
		r, err := s.Create(Fields{Title: title, Location: "x", Date: date})
		require.NoError(t, err)
		return r
	}

	today := create("today", "2026-10-16")
	tenDays := create("ten days", "2026-10-06")
	sixDays := create("six days", "2026-10-10")
	fortyDays := create("forty days", "2026-09-06")
	garbage := create("garbage", "someday")
	noDate := create("no date", "")
	future := create("future", "2026-12-25")

	tests := []struct {
		r    DateRange
		want []string
	}{
		{RangeToday, []string{future.ID, noDate.ID, garbage.ID, today.ID}},
		{RangeWeek, []string{future.ID, noDate.ID, garbage.ID, sixDays.ID, today.ID}},
		{RangeMonth, []string{future.ID, noDate.ID, garbage.ID, sixDays.ID, tenDays.ID, today.ID}},
		{RangeAll, []string{future.ID, noDate.ID, garbage.ID, fortyDays.ID, sixDays.ID, tenDays.ID, today.ID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			got := s.List(Filter{Range: tt.r})
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("List(%s) mismatch (-want +got):\n%s", tt.r, diff)
			}
		})
	}
}

func TestList_SearchAndRangeCombine(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	old, err := s.Create(Fields{Title: "old wallet", Location: "x", Date: "2026-01-01"})
	require.NoError(t, err)
	fresh, err := s.Create(Fields{Title: "fresh wallet", Location: "x", Date: "2026-10-16"})
	require.NoError(t, err)
	mustCreate(t, s, "umbrella", "x")

	got := s.List(Filter{Search: "wallet", Range: RangeWeek})
	assert.Equal(t, []string{fresh.ID}, ids(got))

	got = s.List(Filter{Search: "wallet"})
	assert.Equal(t, []string{fresh.ID, old.ID}, ids(got))
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestStore(t, newMemSlot())
	mustCreate(t, src, "A", "a")
	b, err := src.Create(Fields{Title: "B", Location: "b", Date: "2026-10-01", Time: "09:30", Notes: "multi\nline"})
	require.NoError(t, err)
	mustCreate(t, src, "C", "c")
	_, err = src.Update(b.ID, Fields{Title: "B!", Location: "b"})
	require.NoError(t, err)

	data, err := src.Export()
	require.NoError(t, err)

	dst := newTestStore(t, newMemSlot())
	merged, err := dst.Import(data)
	require.NoError(t, err)

	if diff := cmp.Diff(src.List(Filter{}), merged); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_Indented(t *testing.T) {
	s := newTestStore(t, newMemSlot())

	data, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	mustCreate(t, s, "A", "B")
	data, err = s.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"id\": ")
	assert.NotContains(t, string(data), "updatedAt")
}

func TestExport_KeepsMarkupCharacters(t *testing.T) {
	slot := newMemSlot()
	s := newTestStore(t, slot)
	mustCreate(t, s, "<b>Tom & Jerry</b>", "a > b")

	data, err := s.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "<b>Tom & Jerry</b>"`)
	assert.Contains(t, string(data), `"location": "a > b"`)
	assert.NotContains(t, string(data), `\u00`)
	assert.False(t, strings.HasSuffix(string(data), "\n"))

	assert.Contains(t, slot.values[SlotKey], `"title":"<b>Tom & Jerry</b>"`)

	reloaded := newTestStore(t, slot)
	require.Equal(t, 1, reloaded.Count())
	assert.Equal(t, "<b>Tom & Jerry</b>", reloaded.List(Filter{})[0].Title)
}

func TestImport_LegacyDatetime(t *testing.T) {
	s := newTestStore(t, newMemSlot())

	_, err := s.Import([]byte(`[{"id":"old","title":"T","location":"L","datetime":"2024-05-01T10:30"}]`))
	require.NoError(t, err)

	r, ok := s.Get("old")
	require.True(t, ok)
	assert.Equal(t, "2024-05-01T10:30", r.Datetime)
	assert.Equal(t, "May 1, 2024 10:30", DisplayWhen(r))

	data, err := s.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"datetime": "2024-05-01T10:30"`)

	// Editing hands the date over to the form fields
	_, err = s.Update("old", Fields{Title: "T", Location: "L", Date: "2026-10-15"})
	require.NoError(t, err)
	r, _ = s.Get("old")
	assert.Empty(t, r.Datetime)
	assert.Equal(t, "Oct 15, 2026", DisplayWhen(r))
}

func TestImport_PrependsAheadOfExisting(t *testing.T) {
	slot := newMemSlot()
	slot.values[SlotKey] = `[{"id":"y1","title":"Y","location":"Z","createdAt":"2026-01-01T00:00:00.000Z"}]`
	s := newTestStore(t, slot)

	merged, err := s.Import([]byte(`[{"id":"x1","title":"A","location":"B"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "y1"}, ids(merged))
	assert.Equal(t, []string{"x1", "y1"}, ids(s.List(Filter{})))

	// Persisted too.
	reloaded := newTestStore(t, slot)
	assert.Equal(t, []string{"x1", "y1"}, ids(reloaded.List(Filter{})))
}

func TestImport_NoDeduplication(t *testing.T) {
	s := newTestStore(t, newMemSlot())
	payload := []byte(`[{"id":"dup","title":"A","location":"B"}]`)

	_, err := s.Import(payload)
	require.NoError(t, err)
	merged, err := s.Import(payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"dup", "dup"}, ids(merged))
}

func TestImport_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "{oops"},
		{"object", `{"id":"x1"}`},
		{"null", "null"},
		{"string", `"reports"`},
		{"number", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := newMemSlot()
			s := newTestStore(t, slot)
			existing := mustCreate(t, s, "A", "B")
			writes := slot.writes

			merged, err := s.Import([]byte(tt.input))

			var ierr *ImportError
			require.ErrorAs(t, err, &ierr)
			assert.Nil(t, merged)
			assert.Equal(t, []string{existing.ID}, ids(s.List(Filter{})))
			assert.Equal(t, writes, slot.writes)
		})
	}
}

func TestImport_LenientRecords(t *testing.T) {
	s := newTestStore(t, newMemSlot())

	merged, err := s.Import([]byte(`[
		{"title": 5, "location": null, "notes": true, "extra": {"a": 1}},
		3,
		"loose",
		{}
	]`))
	require.NoError(t, err)
	require.Len(t, merged, 4)

	assert.Equal(t, "5", merged[0].Title)
	assert.Equal(t, "", merged[0].Location)
	assert.Equal(t, "true", merged[0].Notes)
	for _, r := range merged[1:] {
		assert.Equal(t, models.Report{}, r)
	}

	// Such records are still searchable and filterable without panicking.
	assert.Len(t, s.List(Filter{Search: "5", Range: RangeToday}), 1)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		set  bool
	}{
		{"missing", "", false},
		{"empty", "", true},
		{"whitespace", "  \n", true},
		{"garbage", "not json at all", true},
		{"object", `{"id":"a"}`, true},
		{"null", "null", true},
		{"truncated", `[{"id":"a"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := newMemSlot()
			if tt.set {
				slot.values[SlotKey] = tt.raw
			}
			s := New(slot)

			got := s.Load()
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, 0, s.Count())

			data, err := s.Export()
			require.NoError(t, err)
			assert.Equal(t, "[]", string(data))
		})
	}
}

func TestLoad_ReadFailureYieldsEmpty(t *testing.T) {
	slot := newMemSlot()
	slot.failGet = errors.New("disk on fire")

	s := New(slot)
	assert.Empty(t, s.Load())
}

func TestLoad_RestoresPersistedCollection(t *testing.T) {
	slot := newMemSlot()
	first := newTestStore(t, slot)
	a := mustCreate(t, first, "A", "a")
	b := mustCreate(t, first, "B", "b")

	second := New(slot)
	got := second.Load()
	if diff := cmp.Diff([]models.Report{b, a}, got); diff != "" {
		t.Errorf("reloaded collection mismatch (-want +got):\n%s", diff)
	}
}

func TestClear(t *testing.T) {
	slot := newMemSlot()
	s := newTestStore(t, slot)
	mustCreate(t, s, "A", "a")
	mustCreate(t, s, "B", "b")

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, "[]", slot.values[SlotKey])
}

func TestMutations_SlotWriteFailureKeepsState(t *testing.T) {
	slot := newMemSlot()
	s := newTestStore(t, slot)
	r := mustCreate(t, s, "A", "a")
	before := s.List(Filter{})

	slot.failSet = errors.New("read-only database")

	_, err := s.Create(Fields{Title: "B", Location: "b"})
	assert.ErrorIs(t, err, slot.failSet)

	_, err = s.Update(r.ID, Fields{Title: "A2", Location: "a2"})
	assert.ErrorIs(t, err, slot.failSet)

	_, err = s.Delete(r.ID)
	assert.ErrorIs(t, err, slot.failSet)

	_, err = s.Import([]byte(`[{"id":"x"}]`))
	assert.ErrorIs(t, err, slot.failSet)

	assert.ErrorIs(t, s.Clear(), slot.failSet)

	if diff := cmp.Diff(before, s.List(Filter{})); diff != "" {
		t.Errorf("collection changed after failed writes (-want +got):\n%s", diff)
	}
}

func TestCreate_RetriesOnIDCollision(t *testing.T) {
	generated := []string{"dup", "dup", "fresh"}
	next := 0
	gen := func() string {
		id := generated[next]
		next++
		return id
	}

	s := newTestStore(t, newMemSlot(), WithIDGenerator(gen))
	first := mustCreate(t, s, "A", "a")
	second := mustCreate(t, s, "B", "b")

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestCreate_GivesUpOnConstantIDs(t *testing.T) {
	s := newTestStore(t, newMemSlot(), WithIDGenerator(func() string { return "same" }))
	mustCreate(t, s, "A", "a")

	_, err := s.Create(Fields{Title: "B", Location: "b"})
	require.Error(t, err)
	assert.Equal(t, 1, s.Count())
}
