// Package push fans a notification out to every push endpoint a user
// has registered. Attempts are independent: one endpoint failing never
// blocks the others, dead endpoints are pruned, and the dispatcher
// returns only after every attempt has resolved.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/store"
	"github.com/piloted/finsync/internal/utils"
)

// Payload is the small JSON document the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Report summarizes one fan-out.
type Report struct {
	Attempted int
	Delivered int
	Pruned    int
	Failed    int
}

// Dispatcher delivers payloads through a Transport with a bounded
// per-attempt timeout.
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    *utils.Logger
}

// NewDispatcher creates a dispatcher. A non-positive timeout falls back
// to 10 seconds so one unreachable endpoint cannot stall the fan-out.
func NewDispatcher(transport Transport, timeout time.Duration, logger *utils.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{transport: transport, timeout: timeout, logger: logger}
}

// Deliver sends the payload to every subscription on file, concurrently,
// and prunes subscriptions whose endpoints report themselves gone. Only
// listing and pruning can error; delivery failures are logged and
// absorbed into the report.
func (d *Dispatcher) Deliver(ctx context.Context, st *store.UserStore, payload Payload) (*Report, error) {
	subscriptions, err := st.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	report := &Report{Attempted: len(subscriptions)}
	results := make([]Result, len(subscriptions))

	var wg sync.WaitGroup
	for i := range subscriptions {
		wg.Add(1)
		go func(i int, sub models.PushSubscription) {
			defer wg.Done()
			attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			results[i] = d.transport.Send(attemptCtx, &sub, body)
		}(i, subscriptions[i])
	}
	wg.Wait()

	// Store writes happen after the join, on the caller's goroutine.
	for i, res := range results {
		switch res {
		case ResultDelivered:
			report.Delivered++
		case ResultPermanentFailure:
			report.Pruned++
			d.logger.Warn("pruning dead push endpoint %s", subscriptions[i].Endpoint)
			if err := st.RemoveSubscriptionByEndpoint(ctx, subscriptions[i].Endpoint); err != nil {
				return report, fmt.Errorf("prune subscription: %w", err)
			}
		case ResultTransientFailure:
			report.Failed++
			d.logger.Warn("push delivery to %s failed, keeping subscription", subscriptions[i].Endpoint)
		}
	}
	return report, nil
}
