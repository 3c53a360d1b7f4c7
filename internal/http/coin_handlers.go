package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "coinit-backend/internal/common/errors"
	"coinit-backend/internal/common/middleware"
	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/domain/content"
	"coinit-backend/internal/service/coins"
	"coinit-backend/internal/service/metadata"
	"coinit-backend/internal/service/minter"
)

const (
	headerWalletSession = "X-Wallet-Session"
	headerWalletAddress = "X-Wallet-Address"
)

// CoinService is what the coin routes need from the orchestrator.
type CoinService interface {
	CreateFromURL(ctx context.Context, req coins.CreateRequest) (*coin.Record, error)
	Reconcile(ctx context.Context, address string, supplied *coin.Record, requester string) (*coin.Record, bool, error)
	Scrape(ctx context.Context, sourceURL string) (*content.Scraped, error)
	PublishMetadata(ctx context.Context, scraped *content.Scraped) (*metadata.Published, error)
	List(ctx context.Context, limit, offset int) ([]coin.Record, error)
	ListByCreator(ctx context.Context, wallet string, limit, offset int) ([]coin.Record, error)
	GetByAddress(ctx context.Context, address string) (*coin.Record, error)
	Delete(ctx context.Context, id, requester string) error
	Stats(ctx context.Context) (coin.Stats, error)
	UserStats(ctx context.Context, wallet string) (coin.UserStats, error)
}

type CoinHandler struct {
	service CoinService
}

func NewCoinHandler(service CoinService) *CoinHandler {
	return &CoinHandler{service: service}
}

func (h *CoinHandler) RegisterRoutes(router *gin.RouterGroup) {
	coinsGroup := router.Group("/coins")
	{
		coinsGroup.POST("", middleware.HandleErrorWrapper(h.CreateCoin))
		coinsGroup.GET("", middleware.HandleErrorWrapper(h.ListCoins))
		coinsGroup.GET("/stats", middleware.HandleErrorWrapper(h.GetStats))
		coinsGroup.GET("/:address", middleware.HandleErrorWrapper(h.GetCoin))
		coinsGroup.POST("/:address/reconcile", middleware.HandleErrorWrapper(h.ReconcileCoin))
		coinsGroup.DELETE("/:id", middleware.HandleErrorWrapper(h.DeleteCoin))
	}

	creators := router.Group("/creators")
	{
		creators.GET("/:wallet/coins", middleware.HandleErrorWrapper(h.ListCreatorCoins))
		creators.GET("/:wallet/stats", middleware.HandleErrorWrapper(h.GetCreatorStats))
	}

	router.POST("/scrape", middleware.HandleErrorWrapper(h.Scrape))
	router.POST("/metadata", middleware.HandleErrorWrapper(h.PublishMetadata))
}

// CreateCoinRequest starts coin creation from a blog post.
type CreateCoinRequest struct {
	SourceURL     string `json:"source_url" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// ScrapeRequest asks for a page to be extracted.
type ScrapeRequest struct {
	URL string `json:"url" binding:"required"`
}

// ListResponse wraps a page of coins.
type ListResponse struct {
	Items  []coin.Record `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// @Summary Create a coin from a blog post
// @Description Scrapes the post, pins its metadata, mints a coin paying out to the wallet and records it.
// @Description A 207 response means the coin exists on-chain but was not recorded; reconcile it with the returned address.
// @Tags coins
// @Accept json
// @Produce json
// @Param X-Wallet-Session header string true "Wallet signing session"
// @Param request body CreateCoinRequest true "Source post and creator wallet"
// @Success 201 {object} coin.Record
// @Success 207 {object} middleware.ErrorResponse "Minted but not recorded"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /coins [post]
func (h *CoinHandler) CreateCoin(c *gin.Context) {
	var req CreateCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("body", err.Error()))
		return
	}

	record, err := h.service.CreateFromURL(c.Request.Context(), coins.CreateRequest{
		SourceURL: req.SourceURL,
		Wallet: minter.WalletSession{
			Address: req.WalletAddress,
			Token:   c.GetHeader(headerWalletSession),
		},
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// @Summary Record a minted coin that is missing locally
// @Description Inserts the journaled mint result if no record exists for the address. Never mints.
// @Description A body that contradicts the journaled result is rejected with 409. Without a journal entry the body is accepted only from its creator wallet.
// @Tags coins
// @Accept json
// @Produce json
// @Param address path string true "Coin contract address"
// @Param X-Wallet-Address header string false "Requesting wallet"
// @Param record body coin.Record false "Pending record returned with the 207 response"
// @Success 200 {object} coin.Record "Already recorded"
// @Success 201 {object} coin.Record "Recorded now"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /coins/{address}/reconcile [post]
func (h *CoinHandler) ReconcileCoin(c *gin.Context) {
	var supplied *coin.Record
	var body coin.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		if !errors.Is(err, io.EOF) {
			_ = c.Error(apperrors.NewInvalidInputError("body", err.Error()))
			return
		}
	} else {
		supplied = &body
	}

	record, created, err := h.service.Reconcile(c.Request.Context(), c.Param("address"), supplied, c.GetHeader(headerWalletAddress))
	if err != nil {
		_ = c.Error(err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, record)
}

// @Summary List coins
// @Tags coins
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} ListResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /coins [get]
func (h *CoinHandler) ListCoins(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	items, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(items, limit, offset))
}

// @Summary Platform statistics
// @Tags coins
// @Produce json
// @Success 200 {object} coin.Stats
// @Router /coins/stats [get]
func (h *CoinHandler) GetStats(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary Get a coin by contract address
// @Tags coins
// @Produce json
// @Param address path string true "Coin contract address"
// @Success 200 {object} coin.Record
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /coins/{address} [get]
func (h *CoinHandler) GetCoin(c *gin.Context) {
	record, err := h.service.GetByAddress(c.Request.Context(), c.Param("address"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// @Summary Delete a coin record
// @Description Only the creator wallet may delete its record. The on-chain token is unaffected.
// @Tags coins
// @Param id path string true "Record id"
// @Param X-Wallet-Address header string true "Requesting wallet"
// @Success 204
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /coins/{id} [delete]
func (h *CoinHandler) DeleteCoin(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetHeader(headerWalletAddress)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List coins by creator
// @Tags creators
// @Produce json
// @Param wallet path string true "Creator wallet"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} ListResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /creators/{wallet}/coins [get]
func (h *CoinHandler) ListCreatorCoins(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	items, err := h.service.ListByCreator(c.Request.Context(), c.Param("wallet"), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(items, limit, offset))
}

// @Summary Creator statistics
// @Tags creators
// @Produce json
// @Param wallet path string true "Creator wallet"
// @Success 200 {object} coin.UserStats
// @Failure 400 {object} middleware.ErrorResponse
// @Router /creators/{wallet}/stats [get]
func (h *CoinHandler) GetCreatorStats(c *gin.Context) {
	st, err := h.service.UserStats(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary Extract a blog post
// @Tags content
// @Accept json
// @Produce json
// @Param request body ScrapeRequest true "Page to extract"
// @Success 200 {object} content.Scraped
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /scrape [post]
func (h *CoinHandler) Scrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("body", err.Error()))
		return
	}
	scraped, err := h.service.Scrape(c.Request.Context(), req.URL)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scraped)
}

// @Summary Publish coin metadata
// @Description Builds the metadata document for scraped content and pins it.
// @Tags content
// @Accept json
// @Produce json
// @Param request body content.Scraped true "Scraped content"
// @Success 201 {object} metadata.Published
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /metadata [post]
func (h *CoinHandler) PublishMetadata(c *gin.Context) {
	var scraped content.Scraped
	if err := c.ShouldBindJSON(&scraped); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("body", err.Error()))
		return
	}
	pub, err := h.service.PublishMetadata(c.Request.Context(), &scraped)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, pub)
}

func pagination(c *gin.Context) (int, int, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError(name, "must be a non-negative integer")
	}
	return v, nil
}

func newListResponse(items []coin.Record, limit, offset int) ListResponse {
	if items == nil {
		items = []coin.Record{}
	}
	limit, offset = coin.NormalizePage(limit, offset)
	return ListResponse{Items: items, Limit: limit, Offset: offset}
}
