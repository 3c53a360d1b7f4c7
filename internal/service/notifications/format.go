package notifications

import (
	"fmt"
	"strings"
	"time"

	"coinit-backend/internal/domain/coin"
)

const (
	newCoinHeader = "🆕🪙 NEW CREATOR COIN CREATED"
	placeholder   = "N/A"
	createdLayout = "2006-01-02 15:04 UTC"
)

// Explorers holds the base URLs of the public pages a coin is linked to.
type Explorers struct {
	Zora        string
	BaseScan    string
	DexScreener string
}

// DefaultExplorers are the production Base mainnet explorers.
var DefaultExplorers = Explorers{
	Zora:        "https://zora.co",
	BaseScan:    "https://basescan.org",
	DexScreener: "https://dexscreener.com",
}

func (e Explorers) CoinURL(address string) string {
	return fmt.Sprintf("%s/coin/base:%s", strings.TrimRight(e.Zora, "/"), address)
}

func (e Explorers) ProfileURL(wallet string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(e.Zora, "/"), wallet)
}

func (e Explorers) BaseScanURL(address string) string {
	return fmt.Sprintf("%s/token/%s", strings.TrimRight(e.BaseScan, "/"), address)
}

func (e Explorers) DexScreenerURL(address string) string {
	return fmt.Sprintf("%s/base/%s", strings.TrimRight(e.DexScreener, "/"), address)
}

// NewCoinMessage is everything the announcement renders.
type NewCoinMessage struct {
	Name           string
	Symbol         string
	MarketCap      string
	TotalSupply    string
	Creator        string
	CreatorURL     string
	CreatedAt      time.Time
	Contract       string
	Description    string
	ZoraURL        string
	BaseScanURL    string
	DexScreenerURL string
}

// MessageFromRecord builds the announcement input for a persisted coin.
// Market data is not tracked, so those fields carry the placeholder.
func MessageFromRecord(r *coin.Record, ex Explorers) NewCoinMessage {
	return NewCoinMessage{
		Name:           r.Name,
		Symbol:         r.Symbol,
		MarketCap:      placeholder,
		TotalSupply:    placeholder,
		Creator:        r.CreatorWallet,
		CreatorURL:     ex.ProfileURL(r.CreatorWallet),
		CreatedAt:      r.CreatedAt,
		Contract:       r.CoinAddress,
		Description:    r.Metadata.Description,
		ZoraURL:        ex.CoinURL(r.CoinAddress),
		BaseScanURL:    ex.BaseScanURL(r.CoinAddress),
		DexScreenerURL: ex.DexScreenerURL(r.CoinAddress),
	}
}

// FormatNewCoinMessage renders m as Telegram Markdown.
func FormatNewCoinMessage(m NewCoinMessage) string {
	lines := []string{
		newCoinHeader,
		"",
		fmt.Sprintf("📛 %s (%s)", escapeMarkdown(m.Name), escapeMarkdown(m.Symbol)),
		fmt.Sprintf("💰 Market Cap: %s", orPlaceholder(m.MarketCap)),
		fmt.Sprintf("📊 Total Supply: %s", orPlaceholder(m.TotalSupply)),
		fmt.Sprintf("👤 %s", creatorLink(m.Creator, m.CreatorURL)),
		fmt.Sprintf("📅 Created: %s", m.CreatedAt.UTC().Format(createdLayout)),
		fmt.Sprintf("📄 Contract: %s", m.Contract),
	}
	if d := strings.TrimSpace(m.Description); d != "" {
		lines = append(lines, "📝 "+escapeMarkdown(d))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("🔗 View on [Zora](%s) | [BaseScan](%s) | [DexScreener](%s)", m.ZoraURL, m.BaseScanURL, m.DexScreenerURL),
	)
	return strings.Join(lines, "\n")
}

func creatorLink(wallet, url string) string {
	short := shortAddress(wallet)
	if url == "" {
		return short
	}
	return fmt.Sprintf("[%s](%s)", short, url)
}

// shortAddress renders 0x1234...abcd for a full-length address.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// escapeMarkdown escapes the characters legacy Markdown parse mode treats as entities.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
