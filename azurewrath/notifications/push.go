package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
)

// PushPayload is the JSON body the service worker unpacks to show a
// browser notification.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

// PushChannel delivers Web Push notifications signed with the
// application's VAPID key pair.
type PushChannel struct {
	publicKey  string
	privateKey string
	subscriber string
}

func NewPushChannel(publicKey, privateKey, subscriber string) *PushChannel {
	return &PushChannel{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// Send pushes the payload to a single subscription. gone reports that
// the push service rejected the endpoint as permanently dead, which
// means the subscription row should be removed.
func (c *PushChannel) Send(ctx context.Context, sub *models.PushSubscription, payload PushPayload) (gone bool, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             config.PushTTLSeconds,
	})
	if err != nil {
		return false, fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return true, nil
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return false, nil
}
