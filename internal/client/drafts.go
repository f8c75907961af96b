package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xyz-asif/chatter/internal/pkg/segments"
	"github.com/xyz-asif/chatter/internal/transfer"
)

// Draft is a saved message loaded back into the composer for editing
type Draft struct {
	Body        []segments.Segment
	Attachments []transfer.AttachedFile
}

type messageBody struct {
	MessageSegments []segments.Segment `json:"messageSegments"`
}

type attachment struct {
	ContentDocumentID string `json:"contentDocumentId"`
	Title             string `json:"title"`
}

// Me returns the caller's user id
func (c *Client) Me(ctx context.Context) (string, error) {
	var me struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &me); err != nil {
		return "", err
	}
	return me.ID, nil
}

// PostDraft loads a feed element's body and attachments
func (c *Client) PostDraft(ctx context.Context, feedElementID string) (*Draft, error) {
	var element struct {
		Body         messageBody `json:"body"`
		Capabilities struct {
			Files struct {
				Items []attachment `json:"items"`
			} `json:"files"`
		} `json:"capabilities"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/feed/elements/"+url.PathEscape(feedElementID), nil, nil, &element); err != nil {
		return nil, err
	}

	draft := &Draft{Body: element.Body.MessageSegments}
	for _, a := range element.Capabilities.Files.Items {
		draft.Attachments = append(draft.Attachments, transfer.AttachedFile{
			ID:                a.ContentDocumentID,
			ContentDocumentID: a.ContentDocumentID,
			Name:              a.Title,
		})
	}
	return draft, nil
}

// CommentDraft pages through an element's comments to load one of them
func (c *Client) CommentDraft(ctx context.Context, feedElementID, commentID string) (*Draft, error) {
	token := ""
	for {
		query := url.Values{}
		query.Set("pageSize", "50")
		if token != "" {
			query.Set("pageParam", token)
		}

		var page struct {
			Items []struct {
				ID   string      `json:"id"`
				Body messageBody `json:"body"`
			} `json:"items"`
			NextPageToken *string `json:"nextPageToken"`
		}
		path := "/feed/elements/" + url.PathEscape(feedElementID) + "/comments"
		if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.ID == commentID {
				return &Draft{Body: item.Body.MessageSegments}, nil
			}
		}
		if page.NextPageToken == nil {
			return nil, fmt.Errorf("comment %s not found on %s", commentID, feedElementID)
		}
		token = *page.NextPageToken
	}
}
