// Package sitemeta fetches a small preview (title, description, site name)
// of a prospect's website to show next to its generated hook.
package sitemeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxBodyBytes = 2 << 20

// Preview is the metadata shown for one URL.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Empty reports whether nothing useful was found.
func (p *Preview) Empty() bool {
	return p == nil || (p.Title == "" && p.Description == "" && p.SiteName == "")
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "hookline/1.0 (+site preview)",
	}
}

// Fetch downloads url and extracts its preview metadata.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	p := Extract(doc)
	p.URL = url
	return p, nil
}

// Extract reads Open Graph tags first, then falls back to <title> and the
// description meta tag.
func Extract(doc *goquery.Document) *Preview {
	p := &Preview{
		Title:       meta(doc, "og:title"),
		Description: meta(doc, "og:description"),
		SiteName:    meta(doc, "og:site_name"),
		Image:       meta(doc, "og:image"),
	}
	if p.Title == "" {
		p.Title = clean(doc.Find("head title").First().Text())
	}
	if p.Description == "" {
		p.Description = meta(doc, "description")
	}
	p.Description = truncate(p.Description, 300)
	return p
}

func meta(doc *goquery.Document, name string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		key := s.AttrOr("property", s.AttrOr("name", ""))
		if !strings.EqualFold(key, name) {
			return true
		}
		out = clean(s.AttrOr("content", ""))
		return out == ""
	})
	return out
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
