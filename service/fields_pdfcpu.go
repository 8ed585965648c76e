package service

import (
	"context"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PdfcpuExtractor lists AcroForm field names in-process using the pdfcpu
// library. It is the engine for deployments without pdftk on PATH; the fill
// path still requires pdftk.
type PdfcpuExtractor struct{}

// NewPdfcpuExtractor creates an in-process field extractor
func NewPdfcpuExtractor() *PdfcpuExtractor {
	return &PdfcpuExtractor{}
}

// Fields walks the template's AcroForm dictionary and returns the full
// (hierarchical) field names in declaration order.
func (e *PdfcpuExtractor) Fields(_ context.Context, templatePath string) ([]string, error) {
	file, err := os.Open(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	for _, fieldRef := range fieldsArray {
		names = e.collectNames(ctx, fieldRef, "", names, seen)
	}
	return names, nil
}

// collectNames appends the full name of the given field and of any named
// kids. Kids without a T entry are widget annotations, not fields.
func (e *PdfcpuExtractor) collectNames(ctx *model.Context, fieldObj pdftypes.Object, prefix string, names []string, seen map[string]bool) []string {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return names
	}

	name := ""
	if nameObj, found := fieldDict.Find("T"); found {
		if t, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			name = t
		}
	}

	fullName := name
	if prefix != "" && name != "" {
		fullName = prefix + "." + name
	} else if prefix != "" {
		fullName = prefix
	}

	kidsObj, hasKids := fieldDict.Find("Kids")
	if hasKids {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kidRef := range kidsArray {
				names = e.collectNames(ctx, kidRef, fullName, names, seen)
			}
			// A field with named kids is a container; only terminal
			// fields are fillable.
			return names
		}
	}

	if fullName != "" && !seen[fullName] {
		seen[fullName] = true
		names = append(names, fullName)
	}
	return names
}
