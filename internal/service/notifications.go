package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/push"
)

// GetAccounts returns the user's canonical accounts.
func (s *DefaultService) GetAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	st, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return st.ListAccounts(ctx)
}

// GetTransactions returns the user's transactions newest first,
// optionally scoped to one account.
func (s *DefaultService) GetTransactions(ctx context.Context, userID, accountID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	st, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return st.ListTransactions(ctx, accountID)
}

// ListNotifications returns the user's stored notifications newest
// first.
func (s *DefaultService) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	st, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return st.ListNotifications(ctx)
}

// MarkNotificationRead flags a notification as read.
func (s *DefaultService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	st, err := s.stores.ForUser(userID)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	found, err := st.MarkNotificationRead(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Subscribe registers a push endpoint for the user.
func (s *DefaultService) Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) (*models.PushSubscription, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	st, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}

	sub := &models.PushSubscription{
		ID:       uuid.New().String(),
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := st.AddSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("add subscription: %w", err)
	}
	return sub, nil
}

// SendTestPush fans a test payload out to every endpoint the user has
// registered and reports the outcome.
func (s *DefaultService) SendTestPush(ctx context.Context, userID string) (*push.Report, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	st, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return s.dispatcher.Deliver(ctx, st, push.Payload{
		Title: "Test Notification",
		Body:  "Your push notifications are working",
		URL:   "/",
	})
}
