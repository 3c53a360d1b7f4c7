package content

import "time"

// Scraped is the structured result of reading one blog post.
// Optional fields are empty strings when the page does not carry them.
type Scraped struct {
	SourceURL   string    `json:"source_url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
	PublishDate string    `json:"publish_date,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	BodyText    string    `json:"body_text"`
	Tags        []string  `json:"tags,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}
