package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gamecatalog/pkg/database"
	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/response"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

var validate = validator.New()

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	required := AuthMiddleware(h.Tokens, h.Repo)

	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/change-password", required, h.changePassword)
	rg.POST("/logout", required, h.logout)
}

// RegisterUserRoutes mounts /users/me on a group that already requires auth.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid json")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if u, err := h.Repo.GetByEmail(ctx, req.Email); err != nil {
		response.Error(c, apperrors.Store("lookup failed", err))
		return
	} else if u != nil {
		response.Error(c, apperrors.New("EMAIL_TAKEN", "email already exists", http.StatusConflict, nil))
		return
	}
	if u, err := h.Repo.GetByUsername(ctx, req.Username); err != nil {
		response.Error(c, apperrors.Store("lookup failed", err))
		return
	} else if u != nil {
		response.Error(c, apperrors.New("USERNAME_TAKEN", "username already exists", http.StatusConflict, nil))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost())
	if err != nil {
		response.Error(c, apperrors.Store("hash failed", err))
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}

	if err := h.Repo.CreateUser(ctx, u); err != nil {
		// concurrent registration with the same email or username
		if database.IsUniqueViolation(err) {
			response.Error(c, apperrors.New("EMAIL_TAKEN", "email or username already exists", http.StatusConflict, err))
			return
		}
		response.Error(c, apperrors.Store("create user failed", err))
		return
	}

	// auto-login
	token, exp, err := h.Tokens.Sign(&u)
	if err != nil {
		response.Error(c, apperrors.Store("token failed", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":       publicUser(&u),
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid json")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		response.BadRequest(c, "email and password required")
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		response.Error(c, apperrors.Store("lookup failed", err))
		return
	}
	// don't reveal which part failed
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		response.Error(c, apperrors.Unauthenticated("invalid credentials", nil))
		return
	}

	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		response.Error(c, apperrors.Store("token failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       publicUser(u),
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid json")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		response.BadRequest(c, "old and new password required")
		return
	}
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 72 {
		response.BadRequest(c, "password must be 8-72 chars")
		return
	}

	u, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		response.Error(c, apperrors.Unauthenticated("invalid credentials", nil))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.cost())
	if err != nil {
		response.Error(c, apperrors.Store("hash failed", err))
		return
	}

	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash)); err != nil {
		response.Error(c, apperrors.Store("update password failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		response.Error(c, apperrors.Unauthenticated("invalid token", nil))
		return
	}

	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, apperrors.Store("logout failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, publicUser(u))
}

func (h *Handler) currentUser(c *gin.Context) (*User, bool) {
	claims := MustGetClaims(c)
	if claims == nil {
		response.Error(c, apperrors.Unauthenticated("invalid token", nil))
		return nil, false
	}
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, apperrors.Store("lookup failed", err))
		return nil, false
	}
	if u == nil {
		response.Error(c, apperrors.Unauthenticated("invalid token", nil))
		return nil, false
	}
	return u, true
}

func (h *Handler) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

func publicUser(u *User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}
}
