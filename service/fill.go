package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/acroforms/fillserver/model"
	"github.com/google/uuid"
)

// fillSeq distinguishes artifacts of fills started within the same clock
// tick; combined with a UUID per invocation, names never collide.
var fillSeq atomic.Uint64

// Filler merges field values into a template and flattens the result by
// driving pdftk as a subprocess. A Filler is safe for concurrent use:
// every invocation works on its own ephemeral files.
type Filler struct {
	pdftk   string
	timeout time.Duration
	tempDir string
}

// NewFiller creates a fill orchestrator around the given pdftk executable.
// The timeout bounds one subprocess run; pdftk hangs are a realistic
// failure mode.
func NewFiller(pdftkPath string, timeout time.Duration) *Filler {
	return &Filler{
		pdftk:   pdftkPath,
		timeout: timeout,
		tempDir: os.TempDir(),
	}
}

// Fill fills templatePath with values and returns the flattened PDF bytes.
//
// templatePath must already be validated and known to exist. Both ephemeral
// artifacts (the FDF input and the PDF output) are removed before Fill
// returns, on every outcome. Failures are typed: ErrToolNotFound when the
// subprocess cannot start, *ExitError on non-zero exit, wrapped I/O errors
// otherwise.
func (f *Filler) Fill(ctx context.Context, templatePath string, values model.FillValues) ([]byte, error) {
	base := fmt.Sprintf("fill-%s-%d", uuid.NewString(), fillSeq.Add(1))
	fdfPath := filepath.Join(f.tempDir, base+".fdf")
	outPath := filepath.Join(f.tempDir, base+".pdf")

	defer f.removeArtifact(ctx, fdfPath)
	defer f.removeArtifact(ctx, outPath)

	if err := os.WriteFile(fdfPath, MarshalFDF(values), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write form data artifact: %w", err)
	}

	runCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, f.pdftk, templatePath, "fill_form", fdfPath, "output", outPath, "flatten")
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%s did not finish within %s: %w", f.pdftk, f.timeout, runCtx.Err())
		case runCtx.Err() != nil:
			return nil, runCtx.Err()
		case errors.As(err, &exitErr):
			return nil, &ExitError{
				Tool:   f.pdftk,
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		case errors.Is(err, exec.ErrNotFound):
			return nil, fmt.Errorf("%w: %v", ErrToolNotFound, err)
		default:
			return nil, fmt.Errorf("failed to start %s: %w", f.pdftk, err)
		}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read filled output: %w", err)
	}

	return data, nil
}

// removeArtifact deletes an ephemeral file if present. Removal failures are
// logged and never surfaced: cleanup must not mask the primary outcome.
func (f *Filler) removeArtifact(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "failed to remove fill artifact",
			"path", path,
			"error", err,
		)
	}
}
