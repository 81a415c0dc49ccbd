package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-assistant/internal/config"
	"file-assistant/internal/database"
	"file-assistant/internal/fsops"
	"file-assistant/internal/metrics"
	"file-assistant/internal/safety"
	"file-assistant/internal/walker"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg, err := config.Default(root)
	require.NoError(t, err)
	cfg.Extensions = []string{".py"}
	cfg.SkipPatterns = []string{"venv"}
	cfg.RemovePatterns = []string{"build"}
	return cfg
}

func TestRunOnce_CountsThenRemoves(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "1\n2\n3\n")
	writeFile(t, filepath.Join(root, "venv", "lib.py"), "x\n")
	writeFile(t, filepath.Join(root, "build", "gen.py"), "1\n2\n")
	writeFile(t, filepath.Join(root, "pkg", "build_out", "o.bin"), "1234")

	db, err := database.NewHistoryDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig(t, root)
	res, err := RunOnce(context.Background(), cfg, Deps{Logger: zerolog.Nop(), DB: db})
	require.NoError(t, err)

	// Counting happens before removal, so build/gen.py is still counted
	assert.Equal(t, 5, res.Count.TotalLines)
	require.NotNil(t, res.Remove)
	assert.Equal(t, 2, res.Remove.Removed)
	assert.NoDirExists(t, filepath.Join(root, "build"))
	assert.NoDirExists(t, filepath.Join(root, "pkg", "build_out"))
	assert.FileExists(t, filepath.Join(root, "a.py"))
	assert.True(t, metrics.Healthy())

	removals, err := db.GetRemovalsByRun(res.Remove.RunID)
	require.NoError(t, err)
	assert.Len(t, removals, 2)

	counts, err := db.GetRecentCounts(1)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 5, counts[0].TotalLines)
}

func TestRunOnce_DryRunKeepsTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build", "x.o"), "x")

	cfg := testConfig(t, root)
	cfg.DryRun = true
	fake := &fsops.FakeDeleter{}

	res, err := RunOnce(context.Background(), cfg, Deps{Logger: zerolog.Nop(), Deleter: fake})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Remove.Removed)
	assert.Empty(t, fake.Calls)
	assert.DirExists(t, filepath.Join(root, "build"))
}

func TestRunOnce_NoRemovePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build", "x.py"), "x\n")

	cfg := testConfig(t, root)
	cfg.RemovePatterns = nil

	res, err := RunOnce(context.Background(), cfg, Deps{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Nil(t, res.Remove)
	assert.Equal(t, 1, res.Count.TotalLines)
	assert.DirExists(t, filepath.Join(root, "build"))
}

func TestRunOnce_ProtectedGlobBlocksRemoval(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "repo", "build", "keep.txt"), "k")

	cfg := testConfig(t, root)
	cfg.Safety.ProtectedGlobs = []string{"**/repo/build"}
	defer metrics.SetHealthy(true)

	res, err := RunOnce(context.Background(), cfg, Deps{Logger: zerolog.Nop()})

	var delErr *walker.DeleteError
	require.ErrorAs(t, err, &delErr)
	assert.ErrorIs(t, err, safety.ErrProtectedPath)
	assert.Equal(t, 0, res.Remove.Removed)
	assert.DirExists(t, filepath.Join(root, "repo", "build"))
	assert.False(t, metrics.Healthy())
}

func TestRunOnce_InvalidProtectedGlob(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Safety.ProtectedGlobs = []string{"[unclosed"}

	_, err := RunOnce(context.Background(), cfg, Deps{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, safety.ErrInvalidGlob)
}

func TestRunOnce_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunOnce(ctx, testConfig(t, t.TempDir()), Deps{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOnce_NilConfig(t *testing.T) {
	_, err := RunOnce(context.Background(), nil, Deps{})
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "1\n")
	cfg := testConfig(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Deps{Logger: zerolog.Nop()}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
