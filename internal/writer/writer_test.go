package writer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/modulux/internal/types"
)

func sampleRecords() []types.ListingRecord {
	var details types.DetailMap
	details.Set("Studiengang", types.PlainValue("Elektrotechnik & Informationstechnik"))
	details.Set("Ordnungen", types.LinkSequence([]types.LinkedDocument{{Text: "Prüfungsordnung"}}))
	return []types.ListingRecord{
		{ProgramNumber: "041", ProgramName: "Elektrotechnik", DetailLink: "https://example.org/41", Details: details},
		{ProgramNumber: "042", ProgramName: "Maschinenbau", DetailLink: "https://example.org/42", DetailsError: "timed out"},
	}
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "programs.json")
	w, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.Write(context.Background(), sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Prüfungsordnung")
	assert.Contains(t, string(data), "Elektrotechnik & Informationstechnik")
	assert.Contains(t, string(data), "\n  {\n    \"programNumber\": \"041\"")

	var back []types.ListingRecord
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.Equal(t, "timed out", back[1].DetailsError)
	assert.Equal(t, []string{"Studiengang", "Ordnungen"}, back[0].Details.Labels())
}

func TestFileWriterReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "programs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"stale": true}, {"stale": true}, {"stale": true}]`), 0644))

	w, err := New(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

type recordingWriter struct {
	calls int
	err   error
}

func (r *recordingWriter) Write(ctx context.Context, records []types.ListingRecord) error {
	r.calls++
	return r.err
}

func TestMultiStopsAtFirstError(t *testing.T) {
	first := &recordingWriter{err: errors.New("disk full")}
	second := &recordingWriter{}

	err := Multi{first, second}.Write(context.Background(), sampleRecords())
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestProgramArgs(t *testing.T) {
	at := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	recs := sampleRecords()

	args, err := programArgs(0, recs[0], at)
	require.NoError(t, err)
	require.Len(t, args, 10)
	assert.Equal(t, "041", args[1])
	assert.JSONEq(t, `{"Studiengang":"Elektrotechnik & Informationstechnik","Ordnungen":[{"text":"Prüfungsordnung","href":null,"validFrom":""}]}`, args[7].(string))
	assert.Nil(t, args[8])
	assert.Equal(t, at, args[9])

	args, err = programArgs(1, recs[1], at)
	require.NoError(t, err)
	assert.Equal(t, `{}`, args[7])
	require.NotNil(t, args[8])
	assert.Equal(t, "timed out", *args[8].(*string))

	batch, err := programBatch(recs, at)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Len())
}
