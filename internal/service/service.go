// Package service holds the business logic: the sync orchestrator, the
// notification surface and the identity operations the HTTP boundary
// calls into.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/piloted/finsync/internal/ingest"
	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/provider"
	"github.com/piloted/finsync/internal/push"
	"github.com/piloted/finsync/internal/store"
	"github.com/piloted/finsync/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors the API layer maps to HTTP statuses.
var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrNotFound            = errors.New("not found")
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Sync pipeline
	SyncNow(ctx context.Context, userID, providerName string) (*models.SyncResponse, error)
	ConnectBank(ctx context.Context, userID, code string) (*models.SyncResponse, error)
	ConsentURL(userID string) string

	// Financial data
	GetAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetTransactions(ctx context.Context, userID, accountID string) ([]models.Transaction, error)

	// Notifications
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) (*models.PushSubscription, error)
	SendTestPush(ctx context.Context, userID string) (*push.Report, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	users         *store.UserDirectory
	stores        *store.Manager
	provider      provider.Client
	normalizer    *ingest.Normalizer
	dispatcher    *push.Dispatcher
	ruleSet       []models.NotificationRule
	redirectURI   string
	jwtSecret     []byte
	tokenDuration time.Duration
	logger        *utils.Logger
}

// NewDefaultService creates a new DefaultService wired to its
// collaborators.
func NewDefaultService(
	users *store.UserDirectory,
	stores *store.Manager,
	providerClient provider.Client,
	normalizer *ingest.Normalizer,
	dispatcher *push.Dispatcher,
	ruleSet []models.NotificationRule,
	redirectURI string,
	jwtSecret string,
	logger *utils.Logger,
) Service {
	return &DefaultService{
		users:         users,
		stores:        stores,
		provider:      providerClient,
		normalizer:    normalizer,
		dispatcher:    dispatcher,
		ruleSet:       ruleSet,
		redirectURI:   redirectURI,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

// Login verifies credentials and issues a bearer token.
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": user.ID,
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
