package assertion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordsInOrder(t *testing.T) {
	l := NewLedger("tracemark-test/0.1")

	_, err := l.Record(ActionCreated, WithSourceType(SourceTypeDigitalCapture))
	require.NoError(t, err)
	_, err = l.Record(ActionCropped, WithReason("editing"))
	require.NoError(t, err)

	acts := l.Actions()
	require.Len(t, acts, 2)
	assert.Equal(t, ActionCreated, acts[0].Type)
	assert.Equal(t, ActionCropped, acts[1].Type)
	assert.Equal(t, "tracemark-test/0.1", acts[0].SoftwareAgent)
	assert.Equal(t, SourceTypeDigitalCapture, acts[0].SourceType)
	assert.Equal(t, "editing", acts[1].Reason)
}

func TestLedgerAcceptsUnknownActionTypes(t *testing.T) {
	l := NewLedger("agent")
	_, err := l.Record("com.example.rotoscoped")
	assert.NoError(t, err, "action vocabulary is open")
}

func TestLedgerRejectsEmptyActionType(t *testing.T) {
	l := NewLedger("agent")
	_, err := l.Record("  ")
	assert.True(t, IsFieldError(err))
	assert.Equal(t, 0, l.Len(), "failed record must not append")
}

func TestLedgerTimestampsMonotonic(t *testing.T) {
	l := NewLedger("agent")

	// Simulate a wall clock that steps backward between records.
	times := []time.Time{
		time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC),
		time.Date(2026, 8, 30, 12, 0, 1, 0, time.UTC),
		time.Date(2026, 8, 30, 12, 0, 9, 0, time.UTC),
	}
	i := 0
	l.now = func() time.Time { t := times[i]; i++; return t }

	for range times {
		_, err := l.Record(ActionEdited)
		require.NoError(t, err)
	}

	acts := l.Actions()
	prev := time.Time{}
	for _, act := range acts {
		when, err := time.Parse(time.RFC3339, act.When)
		require.NoError(t, err)
		assert.False(t, when.Before(prev), "stamps must be non-decreasing")
		prev = when
	}
}

func TestLedgerParameterSnapshot(t *testing.T) {
	l := NewLedger("agent")
	params := map[string]any{"identifier": "xmp:iid:abc"}

	act, err := l.Record(ActionOpened, WithParameter("identifier", params["identifier"]))
	require.NoError(t, err)

	assert.Equal(t, "xmp:iid:abc", act.Parameters["identifier"])
}

func TestLedgerAssertion(t *testing.T) {
	l := NewLedger("agent")
	_, err := l.Record(ActionCreated)
	require.NoError(t, err)

	a, err := l.Assertion()
	require.NoError(t, err)
	assert.Equal(t, KindActions, a.Kind())
	assert.Equal(t, LabelActions, a.Label())
	assert.NoError(t, a.Validate())

	// The assertion is a snapshot: recording more actions afterwards
	// must not change it.
	_, err = l.Record(ActionFiltered)
	require.NoError(t, err)
	acts := a.Data()["actions"].([]any)
	assert.Len(t, acts, 1)
}

func TestLedgerAssertionRequiresActions(t *testing.T) {
	l := NewLedger("agent")
	_, err := l.Assertion()
	assert.True(t, IsFieldError(err))
}

func TestValidateActionsBadTimestamp(t *testing.T) {
	a, err := Decode(Record{
		Kind:  KindActions,
		Label: LabelActions,
		Data:  []byte(`{"actions":[{"action":"c2pa.created","when":"yesterday-ish"}]}`),
	})
	require.NoError(t, err)

	err = a.Validate()
	require.Error(t, err)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "actions[0].when", fe.Field)
}
