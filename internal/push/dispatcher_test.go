package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/store"
	"github.com/piloted/finsync/internal/utils"
	"github.com/stretchr/testify/assert"
)

// stubTransport records every send and answers with a scripted result
// per endpoint.
type stubTransport struct {
	mu      sync.Mutex
	results map[string]Result
	sent    map[string][][]byte
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		results: make(map[string]Result),
		sent:    make(map[string][][]byte),
	}
}

func (s *stubTransport) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[sub.Endpoint] = append(s.sent[sub.Endpoint], payload)
	if res, ok := s.results[sub.Endpoint]; ok {
		return res
	}
	return ResultDelivered
}

func (s *stubTransport) sentTo(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[endpoint])
}

func testStore(t *testing.T) *store.UserStore {
	t.Helper()
	manager := store.NewManager(t.TempDir())
	t.Cleanup(func() { manager.Close() })

	st, err := manager.ForUser("user-1")
	assert.NoError(t, err)
	return st
}

func addSubscription(t *testing.T, st *store.UserStore, id, endpoint string) {
	t.Helper()
	err := st.AddSubscription(context.Background(), &models.PushSubscription{
		ID:       id,
		Endpoint: endpoint,
		P256dh:   "p256dh",
		Auth:     "auth",
	})
	assert.NoError(t, err)
}

func TestDeliverFansOutToAllSubscriptions(t *testing.T) {
	st := testStore(t)
	transport := newStubTransport()
	dispatcher := NewDispatcher(transport, time.Second, utils.NewLogger())

	addSubscription(t, st, "sub-1", "https://push.example.com/ep-1")
	addSubscription(t, st, "sub-2", "https://push.example.com/ep-2")

	report, err := dispatcher.Deliver(context.Background(), st, Payload{Title: "T", Body: "B", URL: "/"})
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 1, transport.sentTo("https://push.example.com/ep-1"))
	assert.Equal(t, 1, transport.sentTo("https://push.example.com/ep-2"))
}

func TestDeliverIsolatesPermanentFailure(t *testing.T) {
	st := testStore(t)
	transport := newStubTransport()
	dispatcher := NewDispatcher(transport, time.Second, utils.NewLogger())

	addSubscription(t, st, "sub-1", "https://push.example.com/ep-1")
	addSubscription(t, st, "sub-2", "https://push.example.com/ep-2")
	addSubscription(t, st, "sub-3", "https://push.example.com/ep-3")
	transport.results["https://push.example.com/ep-2"] = ResultPermanentFailure

	report, err := dispatcher.Deliver(context.Background(), st, Payload{Title: "T", Body: "B", URL: "/"})
	assert.NoError(t, err)

	// The dead endpoint never blocks its siblings.
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, 1, transport.sentTo("https://push.example.com/ep-1"))
	assert.Equal(t, 1, transport.sentTo("https://push.example.com/ep-3"))

	// Only the dead subscription was removed.
	subscriptions, err := st.ListSubscriptions(context.Background())
	assert.NoError(t, err)
	assert.Len(t, subscriptions, 2)
	for _, sub := range subscriptions {
		assert.NotEqual(t, "https://push.example.com/ep-2", sub.Endpoint)
	}
}

func TestDeliverKeepsSubscriptionOnTransientFailure(t *testing.T) {
	st := testStore(t)
	transport := newStubTransport()
	dispatcher := NewDispatcher(transport, time.Second, utils.NewLogger())

	addSubscription(t, st, "sub-1", "https://push.example.com/ep-1")
	transport.results["https://push.example.com/ep-1"] = ResultTransientFailure

	report, err := dispatcher.Deliver(context.Background(), st, Payload{Title: "T", Body: "B", URL: "/"})
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Pruned)

	subscriptions, err := st.ListSubscriptions(context.Background())
	assert.NoError(t, err)
	assert.Len(t, subscriptions, 1, "transient failures do not prune")
}

func TestDeliverNoSubscriptions(t *testing.T) {
	st := testStore(t)
	dispatcher := NewDispatcher(newStubTransport(), time.Second, utils.NewLogger())

	report, err := dispatcher.Deliver(context.Background(), st, Payload{Title: "T", Body: "B", URL: "/"})
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Attempted)
}

func TestDeliverPayloadEncoding(t *testing.T) {
	st := testStore(t)
	transport := newStubTransport()
	dispatcher := NewDispatcher(transport, time.Second, utils.NewLogger())

	addSubscription(t, st, "sub-1", "https://push.example.com/ep-1")

	_, err := dispatcher.Deliver(context.Background(), st, Payload{
		Title: "Low Balance Alert",
		Body:  "Your account Checking is low on funds: 50 SEK",
		URL:   "/",
	})
	assert.NoError(t, err)

	transport.mu.Lock()
	payload := string(transport.sent["https://push.example.com/ep-1"][0])
	transport.mu.Unlock()
	assert.JSONEq(t, `{
		"title": "Low Balance Alert",
		"body": "Your account Checking is low on funds: 50 SEK",
		"url": "/"
	}`, payload)
}
