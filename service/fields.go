package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// FieldExtractor lists the AcroForm field names of a template, in the order
// the template declares them.
type FieldExtractor interface {
	Fields(ctx context.Context, templatePath string) ([]string, error)
}

// PdftkExtractor extracts field names by running
// `pdftk <template> dump_data_fields_utf8` and scanning its line-oriented
// output for FieldName entries.
type PdftkExtractor struct {
	pdftk string
}

// NewPdftkExtractor creates an extractor driving the given pdftk executable
func NewPdftkExtractor(pdftkPath string) *PdftkExtractor {
	return &PdftkExtractor{pdftk: pdftkPath}
}

// Fields runs the dump subprocess and parses its output. A non-zero exit
// yields an ExitError carrying the tool's stderr text.
func (e *PdftkExtractor) Fields(ctx context.Context, templatePath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.pdftk, templatePath, "dump_data_fields_utf8")

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			return nil, &ExitError{
				Tool:   e.pdftk,
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		case errors.Is(err, exec.ErrNotFound):
			return nil, fmt.Errorf("%w: %v", ErrToolNotFound, err)
		default:
			return nil, fmt.Errorf("failed to run %s: %w", e.pdftk, err)
		}
	}

	return scanFieldNames(&out), nil
}

// scanFieldNames parses pdftk dump_data_fields output, keeping declaration
// order and dropping duplicate names (radio groups repeat theirs).
func scanFieldNames(r io.Reader) []string {
	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "FieldName:") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, "FieldName:"))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names
}
