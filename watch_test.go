package nelson

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTBurke/nelson/pkg/proto"
)

// chanSender passes the reason of every report to a channel
type chanSender chan proto.ReportReason

func (c chanSender) Send(ctx context.Context, rpt Report) { c <- rpt.Reason }
func (c chanSender) Wait() error                          { return nil }

func TestWatch(t *testing.T) {
	calm, err := os.ReadFile("testdata/input/calm.txt")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "line3.txt")
	require.NoError(t, os.WriteFile(path, calm, 0644))

	c, _ := newTestCommand(t, []string{path}, Watch())
	reports := make(chanSender, 100)
	c.report = reports

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Exec(ctx) }()

	expect := func(r proto.ReportReason) {
		t.Helper()
		select {
		case got := <-reports:
			assert.Equal(t, r, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s report", r)
		}
	}
	expect(proto.InControl)

	require.NoError(t, os.WriteFile(path, []byte(rule2Text), 0644))
	expect(proto.OutOfControl)

	require.NoError(t, os.WriteFile(path, calm, 0644))
	expect(proto.Recovered)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchRenameSave(t *testing.T) {
	calm, err := os.ReadFile("testdata/input/calm.txt")
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "line3.txt")
	require.NoError(t, os.WriteFile(path, calm, 0644))

	c, _ := newTestCommand(t, []string{path}, Watch())
	reports := make(chanSender, 100)
	c.report = reports

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Exec(ctx) }()

	expect := func(r proto.ReportReason) {
		t.Helper()
		select {
		case got := <-reports:
			assert.Equal(t, r, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s report", r)
		}
	}
	expect(proto.InControl)

	saves := []struct {
		data   []byte
		reason proto.ReportReason
	}{
		{data: []byte(rule2Text), reason: proto.OutOfControl},
		{data: calm, reason: proto.Recovered},
		{data: []byte(rule2Text), reason: proto.OutOfControl},
	}
	for i, s := range saves {
		tmp := filepath.Join(dir, ".line3.txt.tmp")
		require.NoError(t, os.WriteFile(tmp, s.data, 0644), "save %d", i)
		require.NoError(t, os.Rename(tmp, path), "save %d", i)
		expect(s.reason)
	}

	// writes to other files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), calm, 0644))
	select {
	case got := <-reports:
		t.Fatalf("unexpected %s report", got)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchMissingFile(t *testing.T) {
	c, _ := newTestCommand(t, []string{filepath.Join(t.TempDir(), "missing.txt")}, Watch())
	assert.Error(t, c.Exec(context.Background()))
}
