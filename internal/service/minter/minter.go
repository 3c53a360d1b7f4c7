package minter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoSession is returned when no signing context was supplied.
var ErrNoSession = errors.New("minter: wallet session required")

// Params describe the token to deploy.
type Params struct {
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	URI              string `json:"uri"`
	PayoutRecipient  string `json:"payout_recipient"`
	PlatformReferrer string `json:"platform_referrer"`
	ChainID          int64  `json:"chain_id"`
	Currency         string `json:"currency"`
}

// WalletSession is the caller's live signing context. The backend never holds
// keys; the gateway relays the transaction to the wallet behind Token.
type WalletSession struct {
	Address string
	Token   string
}

// Result is the on-chain outcome of a mint.
type Result struct {
	Address      string `json:"address"`
	TxHash       string `json:"tx_hash,omitempty"`
	DeploymentID string `json:"deployment_id,omitempty"`
}

// Minter deploys tokens on behalf of a wallet.
type Minter interface {
	Mint(ctx context.Context, p Params, session WalletSession) (*Result, error)
}

// Client talks to the minting gateway over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chainID    int64
	currency   string
}

func NewClient(baseURL string, chainID int64, currency string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		chainID:    chainID,
		currency:   currency,
	}
}

type gatewayError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Mint submits the deployment and waits for the gateway's receipt.
func (c *Client) Mint(ctx context.Context, p Params, session WalletSession) (*Result, error) {
	if session.Token == "" {
		return nil, ErrNoSession
	}
	if p.PayoutRecipient == "" {
		p.PayoutRecipient = session.Address
	}
	if p.PlatformReferrer == "" {
		p.PlatformReferrer = p.PayoutRecipient
	}
	if p.ChainID == 0 {
		p.ChainID = c.chainID
	}
	if p.Currency == "" {
		p.Currency = c.currency
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode mint request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/coins", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("X-Wallet-Address", session.Address)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mint request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read mint response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge gatewayError
		_ = json.Unmarshal(raw, &ge)
		msg := ge.Message
		if msg == "" {
			msg = ge.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("minting gateway rejected request: %s", msg)
	}

	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode mint response: %w", err)
	}
	if !common.IsHexAddress(out.Address) {
		return nil, fmt.Errorf("minting gateway returned invalid coin address %q", out.Address)
	}
	out.Address = common.HexToAddress(out.Address).Hex()
	return &out, nil
}

var _ Minter = (*Client)(nil)
