package handler

import (
	"net/http"
	"net/url"

	"github.com/acroforms/fillserver/pkg/logger"
	"github.com/acroforms/fillserver/service"
	"github.com/gin-gonic/gin"
)

// DocHandler resolves external document-management IDs to templates
type DocHandler struct {
	docs *service.DocMap
}

func NewDocHandler(docs *service.DocMap) *DocHandler {
	return &DocHandler{docs: docs}
}

// Redirect sends the caller to the form UI for the template mapped to the
// document ID. Unknown IDs fall back to the template-selection entry point
// rather than failing.
func (h *DocHandler) Redirect(c *gin.Context) {
	id := c.Param("id")

	if name, ok := h.docs.Lookup(id); ok {
		c.Redirect(http.StatusFound, "/?template="+url.QueryEscape(name))
		return
	}

	logger.Debug(c.Request.Context(), "unknown document id, falling back to entry point", "doc_id", id)
	c.Redirect(http.StatusFound, "/")
}
