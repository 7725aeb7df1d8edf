package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/service"
)

// Handler exposes the service operations over HTTP.
type Handler struct {
	svc       service.Service
	jwtSecret []byte
}

// NewHandler creates a new API handler.
func NewHandler(svc service.Service, jwtSecret string) *Handler {
	return &Handler{svc: svc, jwtSecret: []byte(jwtSecret)}
}

// SetupRoutes registers all routes on the router. The bank callback is
// unauthenticated because the provider redirects the browser to it;
// the state parameter carries the user id instead.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/bank/callback", h.BankCallback)

	authed := api.Group("", AuthMiddleware(h.jwtSecret))
	authed.POST("/finance/sync", h.SyncNow)
	authed.GET("/finance/accounts", h.GetAccounts)
	authed.GET("/finance/transactions", h.GetTransactions)
	authed.GET("/notifications", h.ListNotifications)
	authed.POST("/notifications/:id/read", h.MarkNotificationRead)
	authed.POST("/notifications/subscribe", h.Subscribe)
	authed.POST("/notifications/test-push", h.TestPush)
	authed.GET("/bank/launch", h.BankLaunch)
}

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, errorBody("EMAIL_TAKEN", err))
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", err))
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SyncNow(c *gin.Context) {
	var req models.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	resp, err := h.svc.SyncNow(c.Request.Context(), userID(c), req.Provider)
	if err != nil {
		h.syncError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetAccounts(c *gin.Context) {
	accounts, err := h.svc.GetAccounts(c.Request.Context(), userID(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *Handler) GetTransactions(c *gin.Context) {
	transactions, err := h.svc.GetTransactions(c.Request.Context(), userID(c), c.Query("accountId"))
	if err != nil {
		internalError(c, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.svc.ListNotifications(c.Request.Context(), userID(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, models.NotificationsResponse{
		Status:        "success",
		Notifications: notifications,
	})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	err := h.svc.MarkNotificationRead(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", err))
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), userID(c), req)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SubscribeResponse{
		Status:         "success",
		SubscriptionID: sub.ID,
	})
}

func (h *Handler) TestPush(c *gin.Context) {
	report, err := h.svc.SendTestPush(c.Request.Context(), userID(c))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TestPushResponse{
		Status:    "success",
		Attempted: report.Attempted,
		Delivered: report.Delivered,
		Pruned:    report.Pruned,
	})
}

func (h *Handler) BankLaunch(c *gin.Context) {
	c.JSON(http.StatusOK, models.BankLaunchResponse{
		Status: "success",
		URL:    h.svc.ConsentURL(userID(c)),
	})
}

// BankCallback completes the provider consent flow. The user id rides
// in the state parameter because the provider redirect carries no
// bearer token.
func (h *Handler) BankCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if errParam := c.Query("error"); errParam != "" || code == "" || state == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "CONSENT_CANCELLED",
			Message: "Bank consent flow did not complete",
		})
		return
	}

	resp, err := h.svc.ConnectBank(c.Request.Context(), state, code)
	if err != nil {
		h.syncError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) syncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, errorBody("NOT_AUTHENTICATED", err))
	case errors.Is(err, service.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, errorBody("PROVIDER_UNAVAILABLE", err))
	default:
		internalError(c, err)
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody("BAD_REQUEST", err))
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", err))
}

func errorBody(code string, err error) models.ErrorResponse {
	return models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: err.Error(),
	}
}
