package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// FeedItem is the part of a feed element the CLI shows
type FeedItem struct {
	ID    string `json:"id"`
	Actor struct {
		Name string `json:"name"`
	} `json:"actor"`
	Body struct {
		Text string `json:"text"`
	} `json:"body"`
	Capabilities struct {
		ChatterLikes struct {
			Total int `json:"total"`
		} `json:"chatterLikes"`
		Interactions struct {
			Count int `json:"count"`
		} `json:"interactions"`
		Files struct {
			Items []struct {
				Title string `json:"title"`
			} `json:"items"`
		} `json:"files"`
	} `json:"capabilities"`
	CreatedDate time.Time `json:"createdDate"`
}

type FeedPage struct {
	Elements      []FeedItem `json:"elements"`
	NextPageToken *string    `json:"nextPageToken"`
	SortOrder     string     `json:"sortOrder"`
}

type FeedOptions struct {
	PageToken  string
	PageSize   int
	SortOrder  string
	SearchTerm string
}

func (o FeedOptions) values() url.Values {
	query := url.Values{}
	if o.PageToken != "" {
		query.Set("pageToken", o.PageToken)
	}
	if o.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	if o.SortOrder != "" {
		query.Set("sortOrder", o.SortOrder)
	}
	if o.SearchTerm != "" {
		query.Set("searchTerm", o.SearchTerm)
	}
	return query
}

// NewsFeed fetches one page of the caller's news feed
func (c *Client) NewsFeed(ctx context.Context, opts FeedOptions) (*FeedPage, error) {
	return c.feed(ctx, "/feed/news", opts)
}

// RecordFeed fetches one page of a record feed
func (c *Client) RecordFeed(ctx context.Context, recordID string, opts FeedOptions) (*FeedPage, error) {
	return c.feed(ctx, "/feed/records/"+url.PathEscape(recordID), opts)
}

func (c *Client) feed(ctx context.Context, path string, opts FeedOptions) (*FeedPage, error) {
	var resp struct {
		Feed FeedPage `json:"feed"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, opts.values(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Feed, nil
}

// Notification is the part of a notification the CLI shows
type Notification struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Preview string `json:"preview"`
	IsRead  bool   `json:"isRead"`
	Actor   struct {
		Name string `json:"name"`
	} `json:"actor"`
	CreatedAt      time.Time `json:"createdAt"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	HasMore       bool           `json:"hasMore"`
}

func (c *Client) Notifications(ctx context.Context) (*NotificationList, error) {
	var list NotificationList
	if err := c.doJSON(ctx, http.MethodGet, "/notifications", nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UnseenCount returns the number of unseen notifications
func (c *Client) UnseenCount(ctx context.Context) (int64, error) {
	var status struct {
		UnseenCount int64 `json:"unseenCount"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/status", nil, nil, &status); err != nil {
		return 0, err
	}
	return status.UnseenCount, nil
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPatch, "/notifications/read-all", nil, nil, nil)
}
