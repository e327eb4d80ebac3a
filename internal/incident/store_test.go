package incident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReplaceAllCopiesInput(t *testing.T) {
	s := NewStore()
	in := sampleIncidents()
	s.ReplaceAll(in)

	in[0].Summary = "mutated by caller"
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Spike of 500 errors", got.Summary)
	assert.Equal(t, 4, s.Len())
}

func TestStorePrependManyExactOrder(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]Incident{{IncidentID: "c"}, {IncidentID: "d"}})

	s.PrependMany([]Incident{{IncidentID: "a"}, {IncidentID: "b"}})
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(s.All()))

	// Empty prepend leaves the store untouched.
	s.PrependMany(nil)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(s.All()))
}

func TestStoreUpdateStatusOnlyTouchesMatchingID(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleIncidents())
	before := s.All()

	prev, ok := s.UpdateStatus("c", StatusResolved)
	require.True(t, ok)
	assert.Equal(t, StatusOpen, prev)

	after := s.All()
	for i := range after {
		if after[i].IncidentID == "c" {
			assert.Equal(t, StatusResolved, after[i].Status)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}

	// Re-applying the same status is idempotent.
	prev, ok = s.UpdateStatus("c", StatusResolved)
	require.True(t, ok)
	assert.Equal(t, StatusResolved, prev)
	assert.Equal(t, after, s.All())
}

func TestStoreUpdateStatusUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleIncidents())
	before := s.All()

	_, ok := s.UpdateStatus("missing", StatusResolved)
	assert.False(t, ok)
	assert.Equal(t, before, s.All())
}

func TestStoreAllReturnsSnapshot(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleIncidents())

	snap := s.All()
	snap[0].Status = StatusResolved

	got, _ := s.Get("a")
	assert.Equal(t, StatusOpen, got.Status)
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity(" High ")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, sev)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)

	st, err := ParseStatus("OPEN")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, st)
}
