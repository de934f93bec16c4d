package notifier

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// AnyEvent subscribes to every kind of notification.
const AnyEvent = ""

var events = map[string]struct{}{
	AnyEvent:                       {},
	domain.NotificationNetwork:     {},
	domain.NotificationBlock:       {},
	domain.NotificationTransaction: {},
	domain.NotificationSubaccount:  {},
}

// Subscription is an in-process listener of notifications, like a websocket
// client.
type Subscription struct {
	ID    string
	Event string
	ch    chan domain.Notification
}

// Notifications returns the channel where notifications are delivered. It's
// closed once unsubscribed.
func (s *Subscription) Notifications() <-chan domain.Notification {
	return s.ch
}

func (s *Subscription) matches(event string) bool {
	return s.Event == AnyEvent || s.Event == event
}

// Webhook is a remote listener notified with an HTTP POST request. If a
// secret is set, requests carry a bearer token signed with it.
type Webhook struct {
	ID       string `json:"id"`
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"-"`
}

// WebhookInfo is the public view of a Webhook, the secret is never exposed.
type WebhookInfo struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"is_secured"`
}

func NewWebhook(event, endpoint, secret string) (*Webhook, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint, must be a valid URI")
	}
	return &Webhook{uuid.New().String(), event, endpoint, secret}, nil
}

func (h *Webhook) IsSecured() bool {
	return len(h.Secret) > 0
}

func (h *Webhook) Info() WebhookInfo {
	return WebhookInfo{h.ID, h.Event, h.Endpoint, h.IsSecured()}
}

func (h *Webhook) matches(event string) bool {
	return h.Event == AnyEvent || h.Event == event
}

func validateEvent(event string) error {
	if _, ok := events[event]; !ok {
		return fmt.Errorf("unknown event %s", event)
	}
	return nil
}
