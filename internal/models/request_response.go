package models

// Request models
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SyncRequest struct {
	Provider string `json:"provider"`
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

// SubscribeRequest carries the browser PushSubscription JSON verbatim.
type SubscribeRequest struct {
	Endpoint string           `json:"endpoint" binding:"required"`
	Keys     SubscriptionKeys `json:"keys" binding:"required"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// SyncResponse summarizes one completed sync cycle.
type SyncResponse struct {
	Status               string `json:"status"`
	AccountsSynced       int    `json:"accountsSynced"`
	TransactionsSynced   int    `json:"transactionsSynced"`
	NotificationsCreated int    `json:"notificationsCreated"`
	SkippedRecords       int    `json:"skippedRecords"`
}

type NotificationsResponse struct {
	Status        string         `json:"status"`
	Notifications []Notification `json:"notifications"`
}

type SubscribeResponse struct {
	Status         string `json:"status"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// TestPushResponse reports the fan-out outcome of a test delivery.
type TestPushResponse struct {
	Status    string `json:"status"`
	Attempted int    `json:"attempted"`
	Delivered int    `json:"delivered"`
	Pruned    int    `json:"pruned"`
}

type BankLaunchResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
