package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/pkg/circuitbreaker"
)

const (
	// DefaultBufferSize is the number of notifications a subscription can hold
	// before newer ones are dropped.
	DefaultBufferSize = 64

	webhookTimeout = 15 * time.Second
)

// Service fans notifications out to subscriptions and webhooks. Notify never
// blocks: a subscriber that is not keeping up loses notifications and
// webhooks are notified in background.
type Service struct {
	bufferSize int
	subs       map[string]*Subscription
	hooks      map[string]*Webhook
	lock       *sync.RWMutex

	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	wg         *sync.WaitGroup
}

func NewService(bufferSize int) *Service {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Service{
		bufferSize: bufferSize,
		subs:       make(map[string]*Subscription),
		hooks:      make(map[string]*Webhook),
		lock:       &sync.RWMutex{},
		httpClient: &http.Client{Timeout: webhookTimeout},
		cb:         circuitbreaker.NewCircuitBreaker("webhooks"),
		wg:         &sync.WaitGroup{},
	}
}

func (s *Service) Subscribe(event string) (*Subscription, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:    uuid.New().String(),
		Event: event,
		ch:    make(chan domain.Notification, s.bufferSize),
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *Service) Unsubscribe(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(sub.ch)
}

func (s *Service) AddWebhook(hook *Webhook) error {
	if hook == nil {
		return fmt.Errorf("missing webhook")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.hooks[hook.ID]; ok {
		return fmt.Errorf("webhook %s already exists", hook.ID)
	}
	s.hooks[hook.ID] = hook
	return nil
}

func (s *Service) RemoveWebhook(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.hooks[id]; !ok {
		return fmt.Errorf("webhook not found")
	}
	delete(s.hooks, id)
	return nil
}

func (s *Service) ListWebhooks() []WebhookInfo {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hooks := make([]WebhookInfo, 0, len(s.hooks))
	for _, h := range s.hooks {
		hooks = append(hooks, h.Info())
	}
	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].ID < hooks[j].ID
	})
	return hooks
}

func (s *Service) Notify(notification domain.Notification) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	for _, sub := range s.subs {
		if !sub.matches(notification.Event) {
			continue
		}
		select {
		case sub.ch <- notification:
		default:
			log.Debugf(
				"notifier: subscription %s is full, dropped %s notification",
				sub.ID, notification.Event,
			)
		}
	}

	var hooks []Webhook
	for _, h := range s.hooks {
		if h.matches(notification.Event) {
			hooks = append(hooks, *h)
		}
	}
	if len(hooks) <= 0 {
		return
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		log.WithError(err).Warn("notifier: failed to serialize notification")
		return
	}
	for _, h := range hooks {
		hook := h
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.doRequest(hook, payload); err != nil {
				log.WithError(err).Warnf(
					"notifier: failed to notify webhook %s", hook.ID,
				)
			}
		}()
	}
}

// Close closes every subscription and waits for pending webhook requests.
func (s *Service) Close() {
	s.lock.Lock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.lock.Unlock()

	s.wg.Wait()
}

func (s *Service) doRequest(hook Webhook, payload []byte) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequest(
			http.MethodPost, hook.Endpoint, bytes.NewReader(payload),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if hook.IsSecured() {
			token := jwt.New(jwt.SigningMethodHS256)
			tokenString, err := token.SignedString([]byte(hook.Secret))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tokenString))
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%d: %s", resp.StatusCode, body)
		}
		return nil, nil
	})
	return err
}
