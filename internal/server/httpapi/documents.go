package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/gin-gonic/gin"
)

// maxDocumentSize bounds a single document body.
const maxDocumentSize = 256 << 10

func (h *Handler) putDocument(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.store.Put(c.Request.Context(), userID(c), collection, c.Param("id"), body); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) patchDocument(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	patch, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.store.Patch(c.Request.Context(), userID(c), collection, c.Param("id"), patch); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteDocument(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), userID(c), collection, c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getDocument(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	body, err := h.store.Get(c.Request.Context(), userID(c), collection, c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (h *Handler) listDocuments(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}

	docs, err := h.store.List(c.Request.Context(), userID(c), collection)
	if err != nil {
		h.storeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		out = append(out, gin.H{"id": d.ID, "doc": d.Body})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (h *Handler) isEmpty(c *gin.Context) {
	empty, err := h.store.IsEmpty(c.Request.Context(), userID(c))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"empty": empty})
}

func (h *Handler) collectionParam(c *gin.Context) (string, bool) {
	collection := c.Param("collection")
	if !validCollection(collection) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
		return "", false
	}
	return collection, true
}

func (h *Handler) storeError(c *gin.Context, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.log.Error(c.Request.Context(), "store operation failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
