package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "coinit-backend/internal/common/errors"
	"coinit-backend/internal/common/middleware"
	"coinit-backend/internal/domain/user"
)

type UserService interface {
	TouchSession(ctx context.Context, wallet, email string) (*user.Profile, error)
	Get(ctx context.Context, wallet string) (*user.Profile, error)
}

type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("/session", middleware.HandleErrorWrapper(h.TouchSession))
		users.GET("/:wallet", middleware.HandleErrorWrapper(h.GetUser))
	}
}

// SessionRequest is sent after a wallet connects.
type SessionRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Email         string `json:"email"`
}

// @Summary Register a wallet session
// @Description Creates the wallet's profile on first sign-in and refreshes it afterwards.
// @Tags users
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Wallet and optional email"
// @Success 200 {object} user.Profile
// @Failure 400 {object} middleware.ErrorResponse
// @Router /users/session [post]
func (h *UserHandler) TouchSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}
	p, err := h.service.TouchSession(c.Request.Context(), req.WalletAddress, req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Get a profile by wallet
// @Tags users
// @Produce json
// @Param wallet path string true "Wallet address"
// @Success 200 {object} user.Profile
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{wallet} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}
