package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"coinit-backend/internal/domain/content"
)

const (
	DefaultTimeout      = 20 * time.Second
	DefaultMaxBodyBytes = 10 * 1024 * 1024
	MaxBodyRunes        = 10000
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options tune the HTTP fetch.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Extractor fetches a blog post and turns it into content.Scraped.
// It never writes anything durable.
type Extractor struct {
	client   *http.Client
	maxBytes int64
	ua       string
	now      func() time.Time
}

// New wires an HTTP client; a nil client gets one with opts.Timeout.
func New(client *http.Client, opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Extractor{client: client, maxBytes: opts.MaxBodyBytes, ua: opts.UserAgent, now: time.Now}
}

// Extract fetches sourceURL and reads its metadata and main text.
func (e *Extractor) Extract(ctx context.Context, sourceURL string) (*content.Scraped, error) {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	body, err := e.fetch(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	out := &content.Scraped{
		SourceURL:   pageURL.String(),
		Title:       firstNonEmpty(metaContent(doc, "og:title"), metaContent(doc, "twitter:title"), strings.TrimSpace(doc.Find("title").First().Text()), strings.TrimSpace(doc.Find("h1").First().Text())),
		Description: firstNonEmpty(metaContent(doc, "og:description"), metaContent(doc, "description"), metaContent(doc, "twitter:description")),
		Author:      firstNonEmpty(metaContent(doc, "author"), metaContent(doc, "article:author"), strings.TrimSpace(doc.Find("[rel=author]").First().Text())),
		PublishDate: firstNonEmpty(metaContent(doc, "article:published_time"), timeAttr(doc)),
		ImageURL:    resolve(pageURL, firstNonEmpty(metaContent(doc, "og:image"), metaContent(doc, "twitter:image"))),
		Tags:        collectTags(doc),
		ScrapedAt:   e.now().UTC(),
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		out.Title = firstNonEmpty(out.Title, article.Title)
		out.Author = firstNonEmpty(out.Author, article.Byline)
		out.Description = firstNonEmpty(out.Description, article.Excerpt)
		out.ImageURL = firstNonEmpty(out.ImageURL, resolve(pageURL, article.Image))
		out.BodyText = article.TextContent
	}
	if strings.TrimSpace(out.BodyText) == "" {
		out.BodyText = doc.Find("body").Text()
	}
	out.BodyText = truncateRunes(collapseSpace(out.BodyText), MaxBodyRunes)
	out.Title = collapseSpace(out.Title)
	out.Description = collapseSpace(out.Description)

	return out, nil
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return nil, fmt.Errorf("unsupported content type %q", ct)
		}
	}
	if resp.ContentLength > e.maxBytes {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, e.maxBytes)
	}

	// Read one byte past the limit to tell "exactly at limit" from "too big".
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, fmt.Errorf("response body exceeded limit of %d bytes", e.maxBytes)
	}
	return body, nil
}

// metaContent reads <meta property=name> or <meta name=name>.
func metaContent(doc *goquery.Document, name string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

func timeAttr(doc *goquery.Document) string {
	v, _ := doc.Find("time[datetime]").First().Attr("datetime")
	return strings.TrimSpace(v)
}

func collectTags(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var tags []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("content")
		add(v)
	})
	for _, kw := range strings.Split(metaContent(doc, "keywords"), ",") {
		add(kw)
	}
	return tags
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
