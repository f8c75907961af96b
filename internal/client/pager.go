package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// NotificationsShown is how many notifications one Next call returns
	NotificationsShown = 10
	// notificationsLowWater triggers a fetch of older notifications
	notificationsLowWater = 20
)

// MoreNotifications lists notifications last modified before the given time
func (c *Client) MoreNotifications(ctx context.Context, before time.Time) (*NotificationList, error) {
	query := url.Values{}
	query.Set("before", before.UTC().Format(time.RFC3339Nano))

	var list NotificationList
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/more", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// NotificationPager shows notifications a screen at a time. It keeps the
// fetched ones queued and asks for older ones once the queue runs low.
type NotificationPager struct {
	client *Client

	mu      sync.Mutex
	queue   []Notification
	oldest  time.Time
	hasMore bool
	started bool
}

func NewNotificationPager(c *Client) *NotificationPager {
	return &NotificationPager{client: c, hasMore: true}
}

// Next returns up to NotificationsShown notifications, newest first. An empty
// result means everything has been shown.
func (p *NotificationPager) Next(ctx context.Context) ([]Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		list, err := p.client.Notifications(ctx)
		if err != nil {
			return nil, err
		}
		p.started = true
		p.enqueue(list)
	}
	if len(p.queue) < notificationsLowWater && p.hasMore && !p.oldest.IsZero() {
		list, err := p.client.MoreNotifications(ctx, p.oldest)
		if err != nil {
			return nil, err
		}
		p.enqueue(list)
	}

	n := NotificationsShown
	if n > len(p.queue) {
		n = len(p.queue)
	}
	out := append([]Notification(nil), p.queue[:n]...)
	p.queue = p.queue[n:]
	return out, nil
}

func (p *NotificationPager) enqueue(list *NotificationList) {
	p.queue = append(p.queue, list.Notifications...)
	p.hasMore = list.HasMore
	if k := len(list.Notifications); k > 0 {
		p.oldest = list.Notifications[k-1].LastModifiedAt
	}
}
