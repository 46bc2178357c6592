package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/dto"
	"github.com/docuflow/docuflow/internal/middleware"
	"github.com/gin-gonic/gin"
)

// documentHandler handles HTTP requests for the document lifecycle.
type documentHandler struct {
	documentService portssvc.DocumentSvcFacade
}

func newDocumentHandler(ds portssvc.DocumentSvcFacade) *documentHandler {
	return &documentHandler{documentService: ds}
}

// registerDocumentRoutes registers routes related to documents.
func registerDocumentRoutes(rg *gin.RouterGroup, documentService portssvc.DocumentSvcFacade) {
	h := newDocumentHandler(documentService)

	documents := rg.Group("/documents")
	{
		documents.POST("", h.createDocument)
		documents.GET("/:id", h.getDocument)
		documents.PUT("/:id", h.updateDocument)
		documents.POST("/:id/save", h.saveDocument)
		documents.POST("/:id/submit", h.submitDocument)
		documents.POST("/:id/cancel", h.cancelDocument)
	}
	rg.GET("/schemas/:name/documents", h.listDocuments)
}

// createDocument creates a new Draft document of the requested schema.
func (h *documentHandler) createDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateDocument", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID := middleware.GetActorID(c)
	logger = logger.With(slog.String("schema_name", req.SchemaName), slog.String("actor_id", actorID))
	logger.Info("Received request to create document")

	doc, err := h.documentService.CreateDocument(c.Request.Context(), req, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating document", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Unknown schema or link target creating document", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create document in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document"})
		}
		return
	}

	logger.Info("Document created successfully", slog.String("document_id", doc.DocumentID))
	c.JSON(http.StatusCreated, dto.ToDocumentResponse(doc))
}

// getDocument retrieves a document by ID.
func (h *documentHandler) getDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	documentID := c.Param("id")
	logger = logger.With(slog.String("document_id", documentID))

	doc, err := h.documentService.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		} else {
			logger.Error("Failed to get document", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve document"})
		}
		return
	}
	c.JSON(http.StatusOK, dto.ToDocumentResponse(doc))
}

// listDocuments retrieves a paginated page of documents of one schema.
func (h *documentHandler) listDocuments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	schemaName := c.Param("name")

	var params dto.ListDocumentsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.documentService.ListDocuments(c.Request.Context(), schemaName, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schema not found"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to list documents", slog.String("schema_name", schemaName), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// updateDocument replaces field values on a Draft or Saved document.
func (h *documentHandler) updateDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	documentID := c.Param("id")

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateDocument", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID := middleware.GetActorID(c)
	logger = logger.With(slog.String("document_id", documentID), slog.String("actor_id", actorID))
	logger.Info("Received request to update document")

	doc, err := h.documentService.UpdateDocument(c.Request.Context(), documentID, req, actorID)
	if err != nil {
		h.respondTransitionError(c, logger, err, "update")
		return
	}
	c.JSON(http.StatusOK, dto.ToDocumentResponse(doc))
}

// saveDocument transitions a document to Saved.
func (h *documentHandler) saveDocument(c *gin.Context) {
	h.transition(c, "save", h.documentService.SaveDocument)
}

// submitDocument transitions a Saved document to Submitted and posts its
// ledger entries.
func (h *documentHandler) submitDocument(c *gin.Context) {
	h.transition(c, "submit", h.documentService.SubmitDocument)
}

// cancelDocument transitions a Submitted document to Cancelled and posts the
// reversing entries.
func (h *documentHandler) cancelDocument(c *gin.Context) {
	h.transition(c, "cancel", h.documentService.CancelDocument)
}

func (h *documentHandler) transition(c *gin.Context, action string, op func(ctx context.Context, documentID, userID string) (*domain.Document, error)) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	documentID := c.Param("id")
	actorID := middleware.GetActorID(c)
	logger = logger.With(slog.String("document_id", documentID), slog.String("actor_id", actorID), slog.String("action", action))
	logger.Info("Received document transition request")

	doc, err := op(c.Request.Context(), documentID, actorID)
	if err != nil {
		h.respondTransitionError(c, logger, err, action)
		return
	}
	logger.Info("Document transition completed", slog.String("state", string(doc.State)), slog.Int64("revision", doc.Revision))
	c.JSON(http.StatusOK, dto.ToDocumentResponse(doc))
}

// respondTransitionError maps lifecycle errors onto HTTP statuses.
func (h *documentHandler) respondTransitionError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error during document "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Conflict during document "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to "+action+" document", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action + " document"})
	}
}
