package push

import (
	"context"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/piloted/finsync/internal/models"
)

// Result classifies one delivery attempt.
type Result int

const (
	// ResultDelivered means the push service accepted the message.
	ResultDelivered Result = iota
	// ResultPermanentFailure means the endpoint is gone and the
	// subscription should be pruned.
	ResultPermanentFailure
	// ResultTransientFailure means the attempt failed but the endpoint
	// may still be valid; a later sync is the retry mechanism.
	ResultTransientFailure
)

// Transport sends one payload to one push endpoint.
type Transport interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) Result
}

// WebPushTransport delivers via the Web Push protocol with VAPID
// authentication.
type WebPushTransport struct {
	Subject         string // mailto: or https: contact for the push service
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

func NewWebPushTransport(subject, publicKey, privateKey string) *WebPushTransport {
	return &WebPushTransport{
		Subject:         subject,
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		TTL:             int((12 * time.Hour).Seconds()),
	}
}

// Send pushes the payload to one endpoint. 404 and 410 from the push
// service mean the subscription no longer exists; everything else that
// fails is transient.
func (t *WebPushTransport) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) Result {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      t.Subject,
		VAPIDPublicKey:  t.VAPIDPublicKey,
		VAPIDPrivateKey: t.VAPIDPrivateKey,
		TTL:             t.TTL,
	})
	if err != nil {
		return ResultTransientFailure
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ResultPermanentFailure
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ResultDelivered
	default:
		return ResultTransientFailure
	}
}
