package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "coinit-backend/internal/common/errors"
	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/domain/content"
	"coinit-backend/internal/domain/user"
	"coinit-backend/internal/service/coins"
	"coinit-backend/internal/service/metadata"
)

const addr = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"

type stubCoins struct {
	createReq  coins.CreateRequest
	createErr  error
	reconciled *coin.Record
	requester  string
	created    bool
	deleteArgs [2]string
	deleteErr  error
	listLimit  int
}

func (s *stubCoins) CreateFromURL(_ context.Context, req coins.CreateRequest) (*coin.Record, error) {
	s.createReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &coin.Record{ID: "id-1", CoinAddress: addr, Name: "Hello"}, nil
}

func (s *stubCoins) Reconcile(_ context.Context, address string, supplied *coin.Record, requester string) (*coin.Record, bool, error) {
	s.reconciled = supplied
	s.requester = requester
	return &coin.Record{ID: "id-1", CoinAddress: address}, s.created, nil
}

func (s *stubCoins) Scrape(_ context.Context, sourceURL string) (*content.Scraped, error) {
	if sourceURL == "https://down.example" {
		return nil, apperrors.New(apperrors.ErrCodeExtractionFailed, "Could not read the blog post")
	}
	return &content.Scraped{SourceURL: sourceURL, Title: "T"}, nil
}

func (s *stubCoins) PublishMetadata(_ context.Context, scraped *content.Scraped) (*metadata.Published, error) {
	return &metadata.Published{CID: "bafy", URI: "ipfs://bafy"}, nil
}

func (s *stubCoins) List(_ context.Context, limit, offset int) ([]coin.Record, error) {
	s.listLimit = limit
	return nil, nil
}

func (s *stubCoins) ListByCreator(_ context.Context, wallet string, limit, offset int) ([]coin.Record, error) {
	return []coin.Record{{ID: "id-1", CreatorWallet: wallet}}, nil
}

func (s *stubCoins) GetByAddress(_ context.Context, address string) (*coin.Record, error) {
	if address != addr {
		return nil, apperrors.NewNotFoundError("coin", address)
	}
	return &coin.Record{ID: "id-1", CoinAddress: addr}, nil
}

func (s *stubCoins) Delete(_ context.Context, id, requester string) error {
	s.deleteArgs = [2]string{id, requester}
	return s.deleteErr
}

func (s *stubCoins) Stats(context.Context) (coin.Stats, error) {
	return coin.Stats{TotalCoins: 3, TotalCreators: 2}, nil
}

func (s *stubCoins) UserStats(_ context.Context, wallet string) (coin.UserStats, error) {
	return coin.UserStats{WalletAddress: wallet, UserCoins: 2}, nil
}

type stubUsers struct{}

func (stubUsers) TouchSession(_ context.Context, wallet, email string) (*user.Profile, error) {
	if wallet == "bad" {
		return nil, apperrors.NewValidationError("wallet_address", "invalid")
	}
	return &user.Profile{WalletAddress: wallet, Email: email}, nil
}

func (stubUsers) Get(_ context.Context, wallet string) (*user.Profile, error) {
	return nil, apperrors.NewNotFoundError("user", wallet)
}

func newTestRouter(c *stubCoins) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		ServiceName: "coinit-test",
		Debug:       true,
		Coins:       c,
		Users:       stubUsers{},
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		Checks: []HealthCheck{
			{Name: "store", Check: func(context.Context) error { return nil }},
		},
	})
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	errBody, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	return errBody
}

func TestCreateCoin(t *testing.T) {
	c := &stubCoins{}
	r := newTestRouter(c)

	w := do(r, http.MethodPost, "/api/v1/coins",
		`{"source_url":"https://example.com/post","wallet_address":"0xabc"}`,
		map[string]string{headerWalletSession: "tok"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://example.com/post", c.createReq.SourceURL)
	assert.Equal(t, "0xabc", c.createReq.Wallet.Address)
	assert.Equal(t, "tok", c.createReq.Wallet.Token)
	assert.Contains(t, w.Body.String(), addr)
}

func TestCreateCoinBadBody(t *testing.T) {
	r := newTestRouter(&stubCoins{})

	w := do(r, http.MethodPost, "/api/v1/coins", `{"source_url":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, w)["code"])
}

func TestCreateCoinErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"extraction", apperrors.New(apperrors.ErrCodeExtractionFailed, "x"), http.StatusUnprocessableEntity, "EXTRACTION_FAILED"},
		{"publish", apperrors.New(apperrors.ErrCodeMetadataPublishFailed, "x"), http.StatusBadGateway, "METADATA_PUBLISH_FAILED"},
		{"mint", apperrors.New(apperrors.ErrCodeMintFailed, "x"), http.StatusBadGateway, "MINT_FAILED"},
		{"partial", apperrors.NewPartialFailureError(addr, errors.New("db down")), http.StatusMultiStatus, "PARTIAL_FAILURE"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubCoins{createErr: tt.err})
			w := do(r, http.MethodPost, "/api/v1/coins",
				`{"source_url":"https://example.com/post","wallet_address":"0xabc"}`, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w)["code"])
		})
	}
}

func TestPartialFailureBodyCarriesAddress(t *testing.T) {
	r := newTestRouter(&stubCoins{createErr: apperrors.NewPartialFailureError(addr, errors.New("db down"))})
	w := do(r, http.MethodPost, "/api/v1/coins",
		`{"source_url":"https://example.com/post","wallet_address":"0xabc"}`, nil)

	details, ok := decodeError(t, w)["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, addr, details["coin_address"])
}

func TestReconcileCoin(t *testing.T) {
	c := &stubCoins{created: true}
	r := newTestRouter(c)

	w := do(r, http.MethodPost, "/api/v1/coins/"+addr+"/reconcile", "", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, c.reconciled)

	c.created = false
	w = do(r, http.MethodPost, "/api/v1/coins/"+addr+"/reconcile", `{"coin_address":"`+addr+`","metadata_uri":"ipfs://x"}`,
		map[string]string{"X-Wallet-Address": "0x52908400098527886E0F7030069857D2E4169EE7"})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.reconciled)
	assert.Equal(t, "ipfs://x", c.reconciled.MetadataURI)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", c.requester)
}

func TestListCoins(t *testing.T) {
	c := &stubCoins{}
	r := newTestRouter(c)

	w := do(r, http.MethodGet, "/api/v1/coins?limit=500", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 500, c.listLimit)
	assert.JSONEq(t, `{"items":[],"limit":200,"offset":0}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/coins?offset=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCoinAndStats(t *testing.T) {
	r := newTestRouter(&stubCoins{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/coins/"+addr, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/coins/0xdead", "", nil).Code)

	w := do(r, http.MethodGet, "/api/v1/coins/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_coins":3,"total_creators":2}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/creators/"+addr+"/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_coins":2`)

	w = do(r, http.MethodGet, "/api/v1/creators/"+addr+"/coins", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":50`)
}

func TestDeleteCoin(t *testing.T) {
	c := &stubCoins{}
	r := newTestRouter(c)

	w := do(r, http.MethodDelete, "/api/v1/coins/id-1", "", map[string]string{headerWalletAddress: addr})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, [2]string{"id-1", addr}, c.deleteArgs)

	c.deleteErr = apperrors.NewForbiddenError("only the creator can delete this coin")
	w = do(r, http.MethodDelete, "/api/v1/coins/id-1", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestScrapeAndMetadata(t *testing.T) {
	r := newTestRouter(&stubCoins{})

	w := do(r, http.MethodPost, "/api/v1/scrape", `{"url":"https://example.com/post"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/v1/scrape", `{"url":"https://down.example"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPost, "/api/v1/metadata", `{"source_url":"https://example.com/post","title":"T"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"content_reference":"bafy"`)
}

func TestUserRoutes(t *testing.T) {
	r := newTestRouter(&stubCoins{})

	w := do(r, http.MethodPost, "/api/v1/users/session", `{"wallet_address":"`+addr+`","email":"a@b.co"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@b.co"`)

	w = do(r, http.MethodPost, "/api/v1/users/session", `{"wallet_address":"bad"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/"+addr, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProbes(t *testing.T) {
	r := newTestRouter(&stubCoins{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "", nil).Code)
	assert.True(t, strings.HasPrefix(do(r, http.MethodGet, "/metrics", "", nil).Body.String(), "# metrics"))

	gin.SetMode(gin.TestMode)
	down := NewRouter(RouterConfig{
		Debug:  true,
		Checks: []HealthCheck{{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}},
	})
	w := do(down, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unavailable")
}
