package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/karmafinder/karmafetch/common/logger"
	"golang.org/x/net/html"
)

// PageScraper extracts metadata from external pages
type PageScraper struct {
	http      *http.Client
	userAgent string
	log       *logger.Logger
}

// NewPageScraper creates a page scraper
func NewPageScraper(httpClient *http.Client, userAgent string, log *logger.Logger) *PageScraper {
	return &PageScraper{
		http:      httpClient,
		userAgent: userAgent,
		log:       log,
	}
}

// OGImage fetches pageURL and returns its og:image meta content, or
// empty when the page declares none
func (p *PageScraper) OGImage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build scrape request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	tokenizer := html.NewTokenizer(resp.Body)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// EOF means the page declared no og:image; anything else is
			// a truncated read and must not be mistaken for absence
			if err := tokenizer.Err(); err != io.EOF {
				return "", fmt.Errorf("read page: %w", err)
			}
			return "", nil

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "meta" {
				continue
			}

			var property, content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}

			if property == "og:image" && content != "" {
				return content, nil
			}
		}
	}
}
