package activity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewboard/internal/domain"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	l := NewLog(filepath.Join(t.TempDir(), "activity.log"))
	l.Now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return l
}

func TestAppendAndReadNew(t *testing.T) {
	l := testLog(t)
	for _, msg := range []string{"started briefing", "claimed item", "pushed branch"} {
		_, err := l.Append(domain.ActivityEntry{Agent: "agent-1", Message: msg})
		require.NoError(t, err)
	}

	entries, err := ReadNew(l.Path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "started briefing", entries[0].Entry.Message)
	assert.Equal(t, "pushed branch", entries[2].Entry.Message)
	assert.Equal(t, "2026-03-01T10:00:00Z", entries[0].Entry.TS)

	// Reading from the last delivered offset yields nothing new.
	rest, err := ReadNew(l.Path, entries[2].Offset)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestReadNewResumesFromOffset(t *testing.T) {
	l := testLog(t)
	_, err := l.Append(domain.ActivityEntry{Agent: "a", Message: "one"})
	require.NoError(t, err)

	entries, err := ReadNew(l.Path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	cursor := entries[0].Offset

	_, err = l.Append(domain.ActivityEntry{Agent: "a", Message: "two"})
	require.NoError(t, err)

	entries, err = ReadNew(l.Path, cursor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "two", entries[0].Entry.Message)
}

func TestReadNewSkipsPartialLastLine(t *testing.T) {
	l := testLog(t)
	_, err := l.Append(domain.ActivityEntry{Agent: "a", Message: "complete"})
	require.NoError(t, err)

	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"ts":"2026-03-01T10:01:00Z","agent":"b","mess`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := ReadNew(l.Path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "complete", entries[0].Entry.Message)

	// Finish the line; the next read picks it up from the held cursor.
	f, err = os.OpenFile(l.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("age\":\"finished\"}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err = ReadNew(l.Path, entries[0].Offset)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "finished", entries[0].Entry.Message)
}

func TestReadNewStopsAtMalformedLine(t *testing.T) {
	l := testLog(t)
	_, err := l.Append(domain.ActivityEntry{Agent: "a", Message: "good"})
	require.NoError(t, err)

	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = l.Append(domain.ActivityEntry{Agent: "a", Message: "after"})
	require.NoError(t, err)

	entries, err := ReadNew(l.Path, 0)
	require.ErrorIs(t, err, ErrMalformedLine)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Entry.Message)

	// Cursor held at the bad line; retry reproduces the same failure
	// without re-delivering earlier entries.
	again, err := ReadNew(l.Path, entries[0].Offset)
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Empty(t, again)
}

func TestReadNewMissingFile(t *testing.T) {
	entries, err := ReadNew(filepath.Join(t.TempDir(), "absent.log"), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendValidation(t *testing.T) {
	l := testLog(t)
	_, err := l.Append(domain.ActivityEntry{Message: "no agent"})
	assert.Error(t, err)
	_, err = l.Append(domain.ActivityEntry{Agent: "a"})
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	l := testLog(t)
	n, err := Size(l.Path)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = l.Append(domain.ActivityEntry{Agent: "a", Message: "m"})
	require.NoError(t, err)
	n, err = Size(l.Path)
	require.NoError(t, err)
	assert.Positive(t, n)
}
