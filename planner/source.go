package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const extractorTimeout = 30 * time.Second

// Source is resolved planner input.
type Source struct {
	Kind  string `json:"kind"` // text, feed or article
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
}

// ResolveSource turns input into plan text. A URL is first read as an
// RSS/Atom feed, taking its newest item, and otherwise extracted as an
// article page. Anything else is used verbatim.
func ResolveSource(ctx context.Context, input string) (*Source, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("planner: empty source")
	}
	if !isHTTPURL(input) {
		return &Source{Kind: "text", Text: input}, nil
	}

	src, err := fromFeed(ctx, input)
	if err == nil {
		return src, nil
	}
	log.Printf("[planner] %s is not a feed (%v), extracting as article", input, err)

	article, err := readability.FromURL(input, extractorTimeout)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable text at %s", input)
	}
	return &Source{Kind: "article", Title: article.Title, URL: input, Text: joinTitle(article.Title, text)}, nil
}

func fromFeed(ctx context.Context, feedURL string) (*Source, error) {
	ctx, cancel := context.WithTimeout(ctx, extractorTimeout)
	defer cancel()

	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	if len(feed.Items) == 0 {
		return nil, errors.New("feed has no items")
	}
	item := feed.Items[0]

	// the linked article usually has more text than the feed summary
	if item.Link != "" {
		if article, err := readability.FromURL(item.Link, extractorTimeout); err == nil {
			if text := strings.TrimSpace(article.TextContent); text != "" {
				return &Source{Kind: "feed", Title: item.Title, URL: item.Link, Text: joinTitle(item.Title, text)}, nil
			}
		}
	}

	summary := item.Content
	if summary == "" {
		summary = item.Description
	}
	summary = strings.TrimSpace(summary)
	if summary == "" && item.Title == "" {
		return nil, errors.New("feed item has no text")
	}
	return &Source{Kind: "feed", Title: item.Title, URL: item.Link, Text: joinTitle(item.Title, summary)}, nil
}

func joinTitle(title, text string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return text
	}
	if text == "" {
		return title
	}
	return title + "\n\n" + text
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
