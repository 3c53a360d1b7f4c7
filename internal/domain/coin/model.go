package coin

import (
	"time"

	"github.com/google/uuid"
)

// Attribute is one trait entry of the metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// ContentRef points at the source page.
type ContentRef struct {
	URI  string `json:"uri"`
	Mime string `json:"mime"`
}

// MetadataDocument is the JSON pinned to IPFS and referenced by the token.
// Field order is the serialized order.
type MetadataDocument struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url"`
	Attributes  []Attribute `json:"attributes"`
	Content     ContentRef  `json:"content"`
}

// Snapshot is the denormalized copy of the metadata kept on the record.
type Snapshot struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Image       string      `json:"image,omitempty"`
	OriginalURL string      `json:"original_url"`
	Author      string      `json:"author,omitempty"`
	PublishDate string      `json:"publish_date,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Excerpt     string      `json:"excerpt,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// Record is a persisted coin. CoinAddress is unique across the store.
type Record struct {
	ID            string    `json:"id"`
	CreatorWallet string    `json:"creator_wallet"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	CoinAddress   string    `json:"coin_address"`
	TxHash        string    `json:"tx_hash,omitempty"`
	SourceURL     string    `json:"source_url"`
	MetadataURI   string    `json:"metadata_uri"`
	MetadataCID   string    `json:"metadata_cid"`
	GatewayURL    string    `json:"gateway_url"`
	Metadata      Snapshot  `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Stats are platform-wide aggregates.
type Stats struct {
	TotalCoins    int64 `json:"total_coins"`
	TotalCreators int64 `json:"total_creators"`
}

// UserStats are per-creator aggregates.
type UserStats struct {
	WalletAddress string `json:"wallet_address"`
	UserCoins     int64  `json:"user_coins"`
}

// Stamp assigns an id and timestamps to a record about to be inserted.
// Values already set are kept.
func (r *Record) Stamp(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	r.UpdatedAt = now.UTC()
}
