package tools

import (
	"context"
	"net/http"
)

// FeedPost is one post of the feed as handed to the model.
type FeedPost struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	SourceName string `json:"sourceName"`
}

// FeedClient reads a subreddit listing in Reddit's JSON format.
type FeedClient struct {
	svc       *httpService
	url       string
	userAgent string
}

// FeedConfig configures FeedClient.
type FeedConfig struct {
	URL       string
	UserAgent string
	HTTP      HTTPConfig
}

// NewFeedClient returns a client for cfg.URL.
func NewFeedClient(cfg FeedConfig) *FeedClient {
	return &FeedClient{
		svc:       newHTTPService("reddit", cfg.HTTP),
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title                 string `json:"title"`
				URL                   string `json:"url"`
				SubredditNamePrefixed string `json:"subreddit_name_prefixed"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// LatestPosts returns the posts of the listing in feed order.
func (c *FeedClient) LatestPosts(ctx context.Context) ([]FeedPost, error) {
	header := http.Header{}
	if c.userAgent != "" {
		// Reddit отвечает 429 на запросы без User-Agent
		header.Set("User-Agent", c.userAgent)
	}

	var l listing
	if err := c.svc.getJSON(ctx, c.url, header, &l); err != nil {
		return nil, err
	}

	posts := make([]FeedPost, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		posts = append(posts, FeedPost{
			Title:      child.Data.Title,
			Link:       child.Data.URL,
			SourceName: child.Data.SubredditNamePrefixed,
		})
	}
	return posts, nil
}
