package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadNewFromStart(t *testing.T) {
	path := writeTranscript(t,
		`{"role":"user","content":"first message","timestamp":"2026-08-29T10:00:00Z"}`+"\n"+
			`{"role":"assistant","content":"second message","timestamp":"2026-08-29T10:00:01Z"}`+"\n")

	res, err := ReadNew(path, 0, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "first message", res.Records[0].Text)
	assert.Equal(t, "second message", res.Records[1].Text)
	assert.Equal(t, 0, res.Skipped)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.NewOffset)
}

func TestReadNewFromOffset(t *testing.T) {
	first := `{"role":"user","content":"old","timestamp":"2026-08-29T10:00:00Z"}` + "\n"
	second := `{"role":"user","content":"new","timestamp":"2026-08-29T10:00:01Z"}` + "\n"
	path := writeTranscript(t, first+second)

	res, err := ReadNew(path, int64(len(first)), nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "new", res.Records[0].Text)
}

func TestReadNewLeavesPartialLine(t *testing.T) {
	complete := `{"role":"user","content":"done","timestamp":"2026-08-29T10:00:00Z"}` + "\n"
	partial := `{"role":"user","content":"still being writ`
	path := writeTranscript(t, complete+partial)

	res, err := ReadNew(path, 0, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(len(complete)), res.NewOffset)

	// Completing the line later makes it readable from the saved offset.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`ten","timestamp":"2026-08-29T10:00:01Z"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err = ReadNew(path, res.NewOffset, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "still being written", res.Records[0].Text)
}

func TestReadNewSkipsMalformed(t *testing.T) {
	path := writeTranscript(t,
		"not json at all\n"+
			`{"role":"user","content":"good","timestamp":"2026-08-29T10:00:00Z"}`+"\n"+
			`{"role":"cron","content":"bad role","timestamp":"2026-08-29T10:00:01Z"}`+"\n")

	res, err := ReadNew(path, 0, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "good", res.Records[0].Text)
	assert.Equal(t, 2, res.Skipped)

	// The offset still advances past skipped lines.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.NewOffset)
}

func TestReadNewMissingFile(t *testing.T) {
	_, err := ReadNew(filepath.Join(t.TempDir(), "absent.jsonl"), 0, nil)
	require.Error(t, err)
}

func TestCountNew(t *testing.T) {
	path := writeTranscript(t,
		`{"role":"user","content":"one","timestamp":"2026-08-29T10:00:00Z"}`+"\n"+
			`{"role":"user","content":"two","timestamp":"2026-08-29T10:00:01Z"}`+"\n")

	n, err := CountNew(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
