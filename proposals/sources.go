// Package proposals drafts proposal documents from feeds and articles.
package proposals

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second

	// minInlineText is the feed body length below which the linked page is
	// fetched for the full text.
	minInlineText = 600
)

// Source is one piece of text a proposal is drafted from.
type Source struct {
	Title string
	URL   string
	Text  string
	// ExtractionError is set when the linked page could not be read; Text
	// then holds whatever the feed carried.
	ExtractionError string
}

// FetchFeed retrieves an RSS/Atom feed and returns up to maxCount sources
// with their full text filled in.
func FetchFeed(ctx context.Context, feedURL string, maxCount int) ([]*Source, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	count := len(feed.Items)
	if maxCount > 0 && maxCount < count {
		count = maxCount
	}
	sources := make([]*Source, 0, count)
	for _, item := range feed.Items[:count] {
		text := item.Content
		if text == "" {
			text = item.Description
		}
		sources = append(sources, &Source{
			Title: item.Title,
			URL:   item.Link,
			Text:  strings.TrimSpace(text),
		})
	}

	if err := ExtractAll(ctx, sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// FetchArticle extracts the readable text of a single page.
func FetchArticle(ctx context.Context, pageURL string) (*Source, error) {
	src := &Source{URL: pageURL}
	if err := extract(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

// ExtractAll fills in the full text of sources whose inline text is short,
// using a bounded worker pool. Per-source failures are recorded on the source.
func ExtractAll(ctx context.Context, sources []*Source) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(WorkerCount)
	for _, src := range sources {
		if src.URL == "" || len(src.Text) >= minInlineText {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := extract(ctx, src); err != nil {
				src.ExtractionError = err.Error()
				log.Printf("⚠️  Failed to extract %s: %v", src.URL, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func extract(ctx context.Context, src *Source) error {
	if src.URL == "" {
		return fmt.Errorf("article URL is empty")
	}
	timeout := extractorTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	article, err := readability.FromURL(src.URL, timeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}
	if text := strings.TrimSpace(article.TextContent); text != "" {
		src.Text = text
	}
	if src.Title == "" {
		src.Title = article.Title
	}
	log.Printf("✓ Extracted: %s", src.Title)
	return nil
}
