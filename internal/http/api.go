package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/service"
)

// Handler wires HTTP routes to the account service.
type Handler struct {
	accounts service.AccountService
	origins  []string
	log      *logrus.Entry
	now      func() time.Time
}

func NewHandler(accounts service.AccountService, allowedOrigins []string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		accounts: accounts,
		origins:  allowedOrigins,
		log:      logger.WithField("component", "http"),
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.log), corsMiddleware(h.origins), limitBody(maxBodyBytes))

	router.GET("/health", h.health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}

	cfg := router.Group("/config", h.authRequired())
	{
		cfg.GET("", h.getConfig)
		cfg.PUT("", h.putConfig)
	}
}

type registerRequest struct {
	Email    string          `json:"email" binding:"required"`
	Password string          `json:"password" binding:"required"`
	Config   json.RawMessage `json:"config"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type configRequest struct {
	Config json.RawMessage `json:"config" binding:"required"`
}

type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	Config      json.RawMessage `json:"config,omitempty"`
}

type ConfigResponse struct {
	Config    json.RawMessage `json:"config"`
	UpdatedAt string          `json:"updated_at"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Time: h.now().Unix()})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Config:   optionalJSON(req.Config),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authToResponse(res))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authToResponse(res))
}

func (h *Handler) getConfig(c *gin.Context) {
	rec, err := h.accounts.GetConfig(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, configToResponse(rec))
}

func (h *Handler) putConfig(c *gin.Context) {
	var req configRequest
	if !h.bind(c, &req) {
		return
	}

	rec, err := h.accounts.PutConfig(c.Request.Context(), currentUser(c), req.Config)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, configToResponse(rec))
}

func (h *Handler) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// optionalJSON maps an absent or null value to nil.
func optionalJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}

func authToResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		Config:      res.Config,
	}
}

func configToResponse(rec *domain.ConfigRecord) ConfigResponse {
	return ConfigResponse{
		Config:    rec.Config,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
