package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamecatalog/internal/auth"
	"gamecatalog/pkg/response"
)

type Handler struct {
	Service *Service
	Guards  auth.Guards
}

func NewHandler(svc *Service, guards auth.Guards) *Handler {
	return &Handler{Service: svc, Guards: guards}
}

// RegisterRoutes mounts the catalog under rg (normally /games).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Guards.Optional, h.list)                   // GET /games
	rg.GET("/filter-options", h.filterOptions)              // GET /games/filter-options
	rg.GET("/:id", h.Guards.Optional, h.get)                // GET /games/:id
	rg.POST("/:id/purchase", h.Guards.Required, h.purchase) // POST /games/:id/purchase

	admin := rg.Group("", h.Guards.Required, h.Guards.Admin)
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	// genres=Action,RPG or genres=Action&genres=RPG
	p := ListParams{
		Search:    c.Query("search"),
		Genres:    c.QueryArray("genres"),
		Platforms: c.QueryArray("platforms"),
	}

	items, err := h.Service.List(c.Request.Context(), p, auth.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) filterOptions(c *gin.Context) {
	opts, err := h.Service.FilterOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *Handler) get(c *gin.Context) {
	e, err := h.Service.Get(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	e, err := h.Service.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	e, err := h.Service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) purchase(c *gin.Context) {
	res, err := h.Service.Purchase(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
