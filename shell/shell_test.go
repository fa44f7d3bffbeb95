package shell

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/rmdigit/classifier"
	"github.com/juruen/rmdigit/encoding/trace"
	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/sampler"
	"github.com/juruen/rmdigit/session"
	"github.com/juruen/rmdigit/stroke"
)

type seven struct{}

func (seven) Predict(context.Context, sampler.Frame) (inference.PredictionVector, error) {
	return inference.PredictionVector{0, 0, 0, 0, 0, 0, 0, 1, 0, 0}, nil
}

func newCtx(t *testing.T) *ShellCtxt {
	s := session.New(classifier.Ready(seven{}), session.DefaultOptions())
	t.Cleanup(s.Close)
	return &ShellCtxt{Session: s, Full: 255}
}

func TestParseCoords(t *testing.T) {
	coords, err := parseCoords([]string{"1", "2.5", "3", "4"})
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{1, 2.5}, {3, 4}}, coords)

	_, err = parseCoords([]string{"1"})
	assert.Error(t, err)
	_, err = parseCoords([]string{"a", "1"})
	assert.Error(t, err)
}

func TestPointerCommands(t *testing.T) {
	ctx := newCtx(t)

	assert.Error(t, ctx.pointer(stroke.Down, nil))
	assert.Error(t, ctx.pointer(stroke.Move, nil))
	assert.Error(t, ctx.pointer(stroke.Up, []string{"1", "1"}))

	require.NoError(t, ctx.pointer(stroke.Down, []string{"10", "10"}))
	assert.Equal(t, stroke.Dragging, ctx.Session.State())
	assert.Equal(t, "[dragging]>", ctx.prompt())
	require.NoError(t, ctx.pointer(stroke.Move, []string{"100", "100", "390", "390"}))
	require.NoError(t, ctx.pointer(stroke.Up, nil))
	ctx.Session.Wait()

	assert.Equal(t, inference.Label("7"), ctx.Session.Label())
	assert.False(t, ctx.Session.Frame().Blank())
}

func TestRecordSaveReplay(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "seven.trace")
	ctx := newCtx(t)

	_, err := ctx.save(fn)
	assert.Error(t, err, "nothing recorded yet")
	assert.Error(t, ctx.setRecording("maybe"))

	require.NoError(t, ctx.setRecording("on"))
	require.NoError(t, ctx.pointer(stroke.Down, []string{"10", "10"}))
	require.NoError(t, ctx.pointer(stroke.Move, []string{"390", "390"}))
	require.NoError(t, ctx.pointer(stroke.Up, nil))
	n, err := ctx.save(fn)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, ctx.setRecording("off"))

	saved, err := trace.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, stroke.Down, saved.Events[0].Kind)

	drawn := ctx.Session.Frame()

	other := newCtx(t)
	n, err = other.replay(fn)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	other.Session.Wait()

	assert.Equal(t, drawn, other.Session.Frame())
	assert.Equal(t, inference.Label("7"), other.Session.Label())
}

func TestReplayMissingFile(t *testing.T) {
	_, err := newCtx(t).replay(filepath.Join(t.TempDir(), "none.trace"))
	assert.Error(t, err)
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "(none)", formatLabel(inference.Empty))
	assert.Equal(t, ":(", formatLabel(inference.Unrecognized))
	assert.Equal(t, "3", formatLabel("3"))
}

func TestNotifierChanges(t *testing.T) {
	n := &notifier{last: session.Snapshot{Status: session.StatusLoading}}

	assert.Empty(t, n.changes(session.Snapshot{Status: session.StatusLoading}))
	assert.Equal(t, []string{session.StatusReady}, n.changes(session.Snapshot{Status: session.StatusReady}))
	assert.Equal(t, []string{"label: 7"}, n.changes(session.Snapshot{Status: session.StatusReady, Label: "7"}))
	assert.Empty(t, n.changes(session.Snapshot{Status: session.StatusReady, Label: "7"}))
	assert.Empty(t, n.changes(session.Snapshot{Status: session.StatusReady}), "cleared label is not announced")
	assert.Equal(t, session.StatusReady, n.status())
}

func TestNotifierConcurrentListeners(t *testing.T) {
	n := &notifier{last: session.Snapshot{Status: session.StatusLoading}}
	snap := session.Snapshot{Status: session.StatusReady, Label: "7"}

	var (
		mu    sync.Mutex
		lines []string
		wg    sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := n.changes(snap)
			mu.Lock()
			lines = append(lines, got...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{session.StatusReady, "label: 7"}, lines)
}
