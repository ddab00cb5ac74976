// Package library serves the authenticated user's owned games.
package library

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamecatalog/internal/auth"
	"gamecatalog/pkg/models"
	"gamecatalog/pkg/response"
)

// Lister is implemented by catalog.Service.
type Lister interface {
	ListOwned(ctx context.Context, requesterID string) ([]models.OwnedGame, error)
}

type Handler struct {
	Games Lister
}

func NewHandler(games Lister) *Handler {
	return &Handler{Games: games}
}

// RegisterRoutes expects rg to already require authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me/games", h.list)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Games.ListOwned(c.Request.Context(), auth.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"items": items,
	})
}
