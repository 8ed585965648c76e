package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/acroforms/fillserver/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFiller returns a Filler driving the given stub tool, with its
// ephemeral files confined to a per-test directory so leak checks see only
// this test's artifacts.
func newTestFiller(t *testing.T, tool string) *Filler {
	t.Helper()
	return &Filler{
		pdftk:   tool,
		timeout: 5 * time.Second,
		tempDir: t.TempDir(),
	}
}

// assertNoArtifacts verifies the cleanup totality guarantee: no ephemeral
// file survives a fill call, whatever its outcome.
func assertNoArtifacts(t *testing.T, f *Filler) {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "expected no leftover fill artifacts")
}

func TestFillSuccess(t *testing.T) {
	// Stub that echoes the form data artifact into the output artifact,
	// so the returned bytes expose what was serialized.
	tool := writeStubTool(t, `cat "$3" > "$5"
`)
	f := newTestFiller(t, tool)

	data, err := f.Fill(context.Background(), "/templates/forms/fire.pdf", model.FillValues{
		"Name": "O'Brien (Station 3)",
	})
	require.NoError(t, err)

	// The intermediate artifact carried the value with parens escaped
	assert.Contains(t, string(data), `/V (O'Brien \(Station 3\))`)
	assertNoArtifacts(t, f)
}

func TestFillNonZeroExit(t *testing.T) {
	tool := writeStubTool(t, `echo "Error: Failed to open PDF file." >&2
exit 1
`)
	f := newTestFiller(t, tool)

	_, err := f.Fill(context.Background(), "/templates/fire.pdf", model.FillValues{"Name": "x"})
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "Failed to open")
	assertNoArtifacts(t, f)
}

func TestFillToolMissing(t *testing.T) {
	f := newTestFiller(t, "definitely-not-a-real-pdf-tool")

	_, err := f.Fill(context.Background(), "/templates/fire.pdf", model.FillValues{"Name": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assertNoArtifacts(t, f)
}

func TestFillOutputMissing(t *testing.T) {
	// Exits zero without producing the output artifact
	tool := writeStubTool(t, `exit 0
`)
	f := newTestFiller(t, tool)

	_, err := f.Fill(context.Background(), "/templates/fire.pdf", model.FillValues{"Name": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read filled output")
	assertNoArtifacts(t, f)
}

func TestFillTimeout(t *testing.T) {
	tool := writeStubTool(t, `sleep 5
`)
	f := newTestFiller(t, tool)
	f.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := f.Fill(context.Background(), "/templates/fire.pdf", model.FillValues{"Name": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assertNoArtifacts(t, f)
}

func TestFillConcurrent(t *testing.T) {
	tool := writeStubTool(t, `cat "$3" > "$5"
`)
	f := newTestFiller(t, tool)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.Fill(context.Background(), "/templates/fire.pdf", model.FillValues{
				"Name": "concurrent",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "fill %d", i)
	}
	assertNoArtifacts(t, f)
}

func TestFillWritesRestrictedArtifact(t *testing.T) {
	// Capture the artifact's mode while the subprocess can still see it
	tool := writeStubTool(t, `stat -c %a "$3" > "$5" 2>/dev/null || stat -f %Lp "$3" > "$5"
`)
	f := newTestFiller(t, tool)

	data, err := f.Fill(context.Background(), "/templates/fire.pdf", model.FillValues{"Name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "600", strings.TrimSpace(string(data)))
	assertNoArtifacts(t, f)
}

func TestRemoveArtifactMissingFile(t *testing.T) {
	f := newTestFiller(t, "unused")

	// Removing a file that never existed must be silent
	f.removeArtifact(context.Background(), filepath.Join(f.tempDir, "never-created.fdf"))
	assertNoArtifacts(t, f)
}
