package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/acroforms/fillserver/model"
	"github.com/acroforms/fillserver/pkg/logger"
	"github.com/acroforms/fillserver/service"
	"github.com/gin-gonic/gin"
)

// PathResolver validates untrusted template references
type PathResolver interface {
	Resolve(candidate string) (string, error)
}

// FormFiller produces filled, flattened PDF bytes for a validated template
type FormFiller interface {
	Fill(ctx context.Context, templatePath string, values model.FillValues) ([]byte, error)
}

type TemplateHandler struct {
	resolver  PathResolver
	extractor service.FieldExtractor
	filler    FormFiller
}

func NewTemplateHandler(resolver PathResolver, extractor service.FieldExtractor, filler FormFiller) *TemplateHandler {
	return &TemplateHandler{
		resolver:  resolver,
		extractor: extractor,
		filler:    filler,
	}
}

// resolveTemplate validates the template query parameter and confirms the
// resolved file exists. On failure it writes the error response and returns
// false; validation happens before any subprocess or file I/O.
func (h *TemplateHandler) resolveTemplate(c *gin.Context) (string, bool) {
	template := c.Query("template")
	if template == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: template"})
		return "", false
	}

	path, err := h.resolver.Resolve(template)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template path"})
		return "", false
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return "", false
	}
	if err != nil {
		logger.Error(c.Request.Context(), "failed to stat template", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to access template"})
		return "", false
	}
	if info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return "", false
	}

	// Downstream log lines carry the template via the logger context
	ctx := context.WithValue(c.Request.Context(), logger.TemplateKey, template)
	c.Request = c.Request.WithContext(ctx)

	return path, true
}

// Fields lists the AcroForm field names of a template
func (h *TemplateHandler) Fields(c *gin.Context) {
	path, ok := h.resolveTemplate(c)
	if !ok {
		return
	}

	fields, err := h.extractor.Fields(c.Request.Context(), path)
	if err != nil {
		logger.Error(c.Request.Context(), "field extraction failed", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read template fields: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FieldSet{
		Template: c.Query("template"),
		Fields:   fields,
	})
}

// Fill merges submitted values into a template and returns the flattened PDF
func (h *TemplateHandler) Fill(c *gin.Context) {
	path, ok := h.resolveTemplate(c)
	if !ok {
		return
	}

	var values model.FillValues
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form values payload"})
		return
	}

	data, err := h.filler.Fill(c.Request.Context(), path, values)
	if err != nil {
		logger.Error(c.Request.Context(), "fill failed", "path", path, "error", err)

		var exitErr *service.ExitError
		if errors.As(err, &exitErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Fill tool failed with exit code %d", exitErr.Code),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fill template"})
		return
	}

	filename := "filled-" + filepath.Base(path)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, model.ContentTypePDF, data)
}
