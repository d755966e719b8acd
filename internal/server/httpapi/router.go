// Package httpapi exposes the document store and the identity endpoints
// over HTTP (gin): JSON CRUD per collection plus a server-sent-events
// change feed.
package httpapi

import (
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/server/feed"
	"github.com/dmitrijs2005/goalkeeper/internal/server/store"
	"github.com/gin-gonic/gin"
)

// Handler carries the dependencies of every route.
type Handler struct {
	store    store.Store
	hub      *feed.Hub
	log      logging.Logger
	secret   []byte
	tokenTTL time.Duration
}

func NewHandler(s store.Store, hub *feed.Hub, log logging.Logger, secret string, tokenTTL time.Duration) *Handler {
	return &Handler{store: s, hub: hub, log: log, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Router builds the gin engine with all routes attached.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	authed := api.Group("", h.authRequired())
	authed.DELETE("/auth/user", h.deleteUser)

	authed.GET("/store/empty", h.isEmpty)
	authed.GET("/store/:collection", h.listDocuments)
	authed.GET("/store/:collection/:id", h.getDocument)
	authed.PUT("/store/:collection/:id", h.putDocument)
	authed.PATCH("/store/:collection/:id", h.patchDocument)
	authed.DELETE("/store/:collection/:id", h.deleteDocument)

	authed.GET("/changes/:collection", h.changes)

	return r
}

// validCollection guards the collection path parameter; anything else is a
// client bug, not a new namespace.
func validCollection(name string) bool {
	switch name {
	case "accounts", "goals", "deposits":
		return true
	}
	return false
}
