package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"library-room-booker/internal/logging"
	"library-room-booker/internal/model"
)

// PushClient defines the interface for sending a web push notification.
type PushClient interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type defaultPushClient struct{}

func (defaultPushClient) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions lists and prunes stored push subscriptions.
type Subscriptions interface {
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WebPushSender broadcasts results to every stored push subscription.
type WebPushSender struct {
	subs    Subscriptions
	options *webpush.Options
	client  PushClient
	log     *logging.Logger
}

// NewWebPushSender creates a sender signing requests with options.
func NewWebPushSender(subs Subscriptions, options *webpush.Options, log *logging.Logger) *WebPushSender {
	return &WebPushSender{
		subs:    subs,
		options: options,
		client:  defaultPushClient{},
		log:     log.With("webpush"),
	}
}

type pushPayload struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Success bool   `json:"success"`
	DryRun  bool   `json:"dry_run,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

func (s *WebPushSender) Send(ctx context.Context, msg Message) error {
	subs, err := s.subs.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Title:   Title,
		Body:    msg.Text,
		Success: msg.Success,
		DryRun:  msg.DryRun,
		RunID:   msg.RunID,
	})
	if err != nil {
		return err
	}
	s.log.Debugf("Sending %d push notifications", len(subs))
	for _, sub := range subs {
		s.push(ctx, sub, payload)
	}
	return nil
}

func (s *WebPushSender) push(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := s.client.Send(payload, wpSub, s.options)
	if err != nil {
		s.log.Warnf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		s.log.Infof("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := s.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			s.log.Warnf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
