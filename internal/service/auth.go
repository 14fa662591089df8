package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/postwatch/postwatch/internal/config"
	"github.com/postwatch/postwatch/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates operators and tracks session cookies in memory.
type AuthService struct {
	db     *gorm.DB
	logger *zap.Logger
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewAuthService(cfg *config.AuthConfig, db *gorm.DB, logger *zap.Logger) (*AuthService, error) {
	ttl, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid session TTL: %w", err)
	}

	a := &AuthService{
		db:       db,
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]time.Time),
	}

	if err := a.bootstrap(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// bootstrap seeds the initial operator account when the table is empty.
func (a *AuthService) bootstrap(cfg *config.AuthConfig) error {
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	var count int64
	if err := a.db.Model(&models.Operator{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count operators: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	operator := models.Operator{
		Username:     cfg.BootstrapUsername,
		PasswordHash: string(hash),
	}
	if err := a.db.Create(&operator).Error; err != nil {
		return fmt.Errorf("failed to create bootstrap operator: %w", err)
	}

	a.logger.Info("Seeded bootstrap operator", zap.String("username", operator.Username))
	return nil
}

// Login verifies credentials (and the TOTP code when the operator has a
// secret configured) and returns a new session token.
func (a *AuthService) Login(username, password, totpCode string) (string, error) {
	var operator models.Operator
	err := a.db.Where("username = ?", username).First(&operator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to query operator: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)) != nil {
		a.logger.Warn("Password check failed", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	if operator.TOTPSecret != "" && !totp.Validate(totpCode, operator.TOTPSecret) {
		a.logger.Warn("TOTP validation failed", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	a.mu.Lock()
	// Sweep abandoned sessions so the map stays bounded.
	for stale, expiry := range a.sessions {
		if now.After(expiry) {
			delete(a.sessions, stale)
		}
	}
	a.sessions[token] = now.Add(a.ttl)
	a.mu.Unlock()

	a.logger.Info("Operator logged in", zap.String("username", username))
	return token, nil
}

func (a *AuthService) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

func (a *AuthService) isValidSession(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	expiry, ok := a.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(a.sessions, token)
		return false
	}
	return true
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Middleware guards the API. Health and auth endpoints stay open.
func (a *AuthService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/api/v1/auth/") {
			c.Next()
			return
		}

		token, err := c.Cookie("auth_token")
		if err != nil || !a.isValidSession(token) {
			c.JSON(401, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
