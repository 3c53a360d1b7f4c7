package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coinit-backend/internal/domain/coin"
)

// Pinner stores bytes in content-addressed storage and returns their CID.
type Pinner interface {
	Pin(ctx context.Context, data []byte) (string, error)
}

// Published is the outcome of pinning a metadata document.
type Published struct {
	CID        string                `json:"content_reference"`
	URI        string                `json:"uri"`
	GatewayURL string                `json:"retrievable_url"`
	Document   coin.MetadataDocument `json:"metadata"`
}

// Publisher serializes metadata documents and pins them.
type Publisher struct {
	pinner  Pinner
	gateway string
}

func NewPublisher(pinner Pinner, gatewayURL string) *Publisher {
	return &Publisher{pinner: pinner, gateway: strings.TrimRight(gatewayURL, "/")}
}

// Encode renders the document deterministically; no time-varying fields are
// added, so the same document always maps to the same CID.
func Encode(doc coin.MetadataDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Publish pins doc and returns its references.
func (p *Publisher) Publish(ctx context.Context, doc coin.MetadataDocument) (*Published, error) {
	data, err := Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	cid, err := p.pinner.Pin(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("pin metadata: %w", err)
	}
	if cid == "" {
		return nil, fmt.Errorf("pin metadata: empty content reference")
	}
	return &Published{
		CID:        cid,
		URI:        "ipfs://" + cid,
		GatewayURL: fmt.Sprintf("%s/ipfs/%s", p.gateway, cid),
		Document:   doc,
	}, nil
}
