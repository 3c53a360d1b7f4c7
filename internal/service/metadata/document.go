package metadata

import (
	"net/url"

	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/domain/content"
)

const (
	unknownValue = "Unknown"
	postType     = "Blog Post"
	contentMime  = "text/html"
	descPrefix   = "A coin representing the blog post: "
)

// BuildDocument shapes scraped content into the token metadata document.
// It is pure: equal inputs give equal documents.
func BuildDocument(s *content.Scraped, tokenName string) coin.MetadataDocument {
	author := s.Author
	if author == "" {
		author = unknownValue
	}
	publishDate := s.PublishDate
	if publishDate == "" {
		publishDate = unknownValue
	}

	return coin.MetadataDocument{
		Name:        tokenName,
		Description: descPrefix + s.Title,
		Image:       s.ImageURL,
		ExternalURL: s.SourceURL,
		Attributes: []coin.Attribute{
			{TraitType: "Author", Value: author},
			{TraitType: "Source", Value: hostname(s.SourceURL)},
			{TraitType: "Type", Value: postType},
			{TraitType: "Original Link", Value: s.SourceURL},
			{TraitType: "Publish Date", Value: publishDate},
		},
		Content: coin.ContentRef{URI: s.SourceURL, Mime: contentMime},
	}
}

// Snapshot is the copy of the document stored alongside the coin record.
func Snapshot(s *content.Scraped, doc coin.MetadataDocument) coin.Snapshot {
	excerpt := s.BodyText
	if r := []rune(excerpt); len(r) > 500 {
		excerpt = string(r[:500])
	}
	return coin.Snapshot{
		Title:       s.Title,
		Description: firstNonEmpty(s.Description, doc.Description),
		Image:       s.ImageURL,
		OriginalURL: s.SourceURL,
		Author:      s.Author,
		PublishDate: s.PublishDate,
		Tags:        s.Tags,
		Excerpt:     excerpt,
		Attributes:  doc.Attributes,
	}
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
