package metadata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/domain/content"
)

// hashPinner mimics content addressing: the CID is a digest of the bytes.
type hashPinner struct {
	calls int
	err   error
}

func (p *hashPinner) Pin(_ context.Context, data []byte) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	sum := sha256.Sum256(data)
	return "bafy" + hex.EncodeToString(sum[:8]), nil
}

func scraped() *content.Scraped {
	return &content.Scraped{
		SourceURL:   "https://blog.example.com/posts/hello?ref=home&x=1",
		Title:       "Hello, World! 2024",
		Description: "A first post.",
		Author:      "Ada",
		PublishDate: "2024-03-01",
		ImageURL:    "https://blog.example.com/cover.png",
		BodyText:    "Body text.",
		Tags:        []string{"go"},
	}
}

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument(scraped(), "Hello, World! 2024")

	assert.Equal(t, "Hello, World! 2024", doc.Name)
	assert.Equal(t, "A coin representing the blog post: Hello, World! 2024", doc.Description)
	assert.Equal(t, "https://blog.example.com/cover.png", doc.Image)
	assert.Equal(t, "https://blog.example.com/posts/hello?ref=home&x=1", doc.ExternalURL)
	assert.Equal(t, []coin.Attribute{
		{TraitType: "Author", Value: "Ada"},
		{TraitType: "Source", Value: "blog.example.com"},
		{TraitType: "Type", Value: "Blog Post"},
		{TraitType: "Original Link", Value: "https://blog.example.com/posts/hello?ref=home&x=1"},
		{TraitType: "Publish Date", Value: "2024-03-01"},
	}, doc.Attributes)
	assert.Equal(t, coin.ContentRef{URI: doc.ExternalURL, Mime: "text/html"}, doc.Content)
}

func TestBuildDocumentDefaults(t *testing.T) {
	s := scraped()
	s.Author = ""
	s.PublishDate = ""
	s.ImageURL = ""

	doc := BuildDocument(s, "Blog Coin")
	assert.Equal(t, "Unknown", doc.Attributes[0].Value)
	assert.Equal(t, "Unknown", doc.Attributes[4].Value)
	assert.Empty(t, doc.Image)
}

func TestEncodeFieldOrder(t *testing.T) {
	data, err := Encode(BuildDocument(scraped(), "Hello"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"name", "description", "image", "external_url", "attributes", "content"} {
		assert.Contains(t, raw, key)
	}
	assert.Contains(t, string(data), "ref=home&x=1")
	assert.Less(t, bytes.Index(data, []byte(`"name"`)), bytes.Index(data, []byte(`"content"`)))
}

func TestPublishIsIdempotent(t *testing.T) {
	pinner := &hashPinner{}
	p := NewPublisher(pinner, "https://gateway.example/")
	doc := BuildDocument(scraped(), "Hello")

	first, err := p.Publish(context.Background(), doc)
	require.NoError(t, err)
	second, err := p.Publish(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first.CID, second.CID)
	assert.Equal(t, "ipfs://"+first.CID, first.URI)
	assert.Equal(t, "https://gateway.example/ipfs/"+first.CID, first.GatewayURL)
	assert.Equal(t, doc, first.Document)
	assert.Equal(t, 2, pinner.calls)
}

func TestPublishFailure(t *testing.T) {
	p := NewPublisher(&hashPinner{err: errors.New("node down")}, "https://gateway.example")
	_, err := p.Publish(context.Background(), BuildDocument(scraped(), "Hello"))
	assert.ErrorContains(t, err, "node down")
}

func TestSnapshot(t *testing.T) {
	s := scraped()
	doc := BuildDocument(s, "Hello")
	snap := Snapshot(s, doc)

	assert.Equal(t, s.Title, snap.Title)
	assert.Equal(t, s.SourceURL, snap.OriginalURL)
	assert.Equal(t, "Body text.", snap.Excerpt)
	assert.Equal(t, doc.Attributes, snap.Attributes)
}
