package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/piloted/finsync/internal/api"
	"github.com/piloted/finsync/internal/ingest"
	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/provider"
	"github.com/piloted/finsync/internal/push"
	"github.com/piloted/finsync/internal/rules"
	"github.com/piloted/finsync/internal/service"
	"github.com/piloted/finsync/internal/store"
	"github.com/piloted/finsync/internal/utils"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-key"

// FakeTransport is an in-memory push transport. Results are scripted
// per endpoint; unscripted endpoints deliver successfully.
type FakeTransport struct {
	mu      sync.Mutex
	results map[string]push.Result
	sent    map[string]int
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		results: make(map[string]push.Result),
		sent:    make(map[string]int),
	}
}

func (f *FakeTransport) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) push.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[sub.Endpoint]++
	if res, ok := f.results[sub.Endpoint]; ok {
		return res
	}
	return push.ResultDelivered
}

// ScriptResult makes future sends to the endpoint return the result.
func (f *FakeTransport) ScriptResult(endpoint string, res push.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[endpoint] = res
}

// SentTo reports how many payloads were sent to the endpoint.
func (f *FakeTransport) SentTo(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[endpoint]
}

// TotalSent reports how many payloads were sent across all endpoints.
func (f *FakeTransport) TotalSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.sent {
		total += n
	}
	return total
}

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Service     service.Service
	Stores      *store.Manager
	Users       *store.UserDirectory
	Transport   *FakeTransport
	FixtureDir  string
	TestUserID  string
	TestUserJWT string
}

// SetupTestContext wires a full in-process server over temp-dir stores
// and a fixture-backed provider, plus one registered test user.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	dataDir := t.TempDir()
	fixtureDir := t.TempDir()

	users, err := store.OpenUserDirectory(dataDir)
	assert.NoError(t, err, "Failed to open test user directory")
	stores := store.NewManager(dataDir)
	t.Cleanup(func() {
		stores.Close()
		users.Close()
	})

	logger := utils.NewLogger()
	transport := NewFakeTransport()
	svc := service.NewDefaultService(
		users,
		stores,
		provider.NewFileClient(fixtureDir),
		ingest.NewNormalizer(logger),
		push.NewDispatcher(transport, time.Second, logger),
		rules.DefaultRuleSet(),
		"http://localhost:8080/api/bank/callback",
		testJWTSecret,
		logger,
	)

	handler := api.NewHandler(svc, testJWTSecret)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	testUserID, token := createTestUser(t, users)

	return &TestContext{
		Router:      router,
		Service:     svc,
		Stores:      stores,
		Users:       users,
		Transport:   transport,
		FixtureDir:  fixtureDir,
		TestUserID:  testUserID,
		TestUserJWT: token,
	}
}

// WriteFixture places a provider payload file into the fixture dir.
func WriteFixture(t *testing.T, ctx *TestContext, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(ctx.FixtureDir, name), []byte(content), 0o644)
	assert.NoError(t, err, "Failed to write fixture %s", name)
}

func createTestUser(t *testing.T, users *store.UserDirectory) (string, string) {
	t.Helper()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)
	user := &models.User{
		Email:    "testuser@example.com",
		Name:     "Test User",
		Password: string(hashedPassword),
	}
	err := users.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	tokenString, err := token.SignedString([]byte(testJWTSecret))
	assert.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
