// admin.go - privacy-conscious admin API over the relay audit log
package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio/internal/audit"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/logging"
)

const (
	adminCookie       = "admin_token"
	defaultRecentSize = 50
	maxRecentSize     = 500
)

type adminCredentials struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type adminPanel struct {
	username     string
	password     string
	token        string
	salt         string
	secureCookie bool
	retention    time.Duration
	store        *audit.Store
	logger       *logging.Logger
}

func newAdminPanel(cfg *config.Config, store *audit.Store, logger *logging.Logger, salt string) *adminPanel {
	p := &adminPanel{
		username:     cfg.AdminUsername,
		password:     cfg.AdminPassword,
		token:        generateAdminToken(),
		salt:         salt,
		secureCookie: cfg.IsProduction(),
		retention:    cfg.AuditRetention,
		store:        store,
		logger:       logger,
	}

	logger.Info("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		logger.Debug("Admin token (dev only): %s", p.token)
	}
	return p
}

func generateAdminToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic("failed to generate admin token: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Middleware to check admin authentication
func (p *adminPanel) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || !constantTimeEqual(token, p.token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (p *adminPanel) login(c *gin.Context) {
	var creds adminCredentials
	if err := c.ShouldBind(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	// evaluate both so timing does not reveal which one was wrong
	userOK := constantTimeEqual(creds.Username, p.username)
	passOK := constantTimeEqual(creds.Password, p.password)
	if !userOK || !passOK {
		p.logger.Warn("Failed admin login attempt from %s", audit.HashIP(p.salt, c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookie, p.token, 3600*24, "/admin", "", p.secureCookie, true)
	p.logger.Info("Admin login successful from %s", audit.HashIP(p.salt, c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

func (p *adminPanel) logout(c *gin.Context) {
	c.SetCookie(adminCookie, "", -1, "/admin", "", p.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (p *adminPanel) stats(c *gin.Context) {
	stats, err := p.store.Stats(c.Request.Context(), time.Now())
	if err != nil {
		p.logger.Error("Error loading admin stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (p *adminPanel) attempts(c *gin.Context) {
	limit := defaultRecentSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentSize)
	}

	attempts, err := p.store.Recent(c.Request.Context(), limit)
	if err != nil {
		p.logger.Error("Error loading relay attempts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load relay attempts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// Privacy compliance endpoint - drop attempts older than the retention window
func (p *adminPanel) cleanup(c *gin.Context) {
	removed, err := p.store.Cleanup(c.Request.Context(), time.Now().Add(-p.retention))
	if err != nil {
		p.logger.Error("Error cleaning up relay attempts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}
	p.logger.Info("Privacy cleanup: removed %d relay attempts", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Setup all admin routes
func setupAdminRoutes(r *gin.Engine, p *adminPanel) {
	r.POST("/admin/login", p.login)

	adminGroup := r.Group("/admin")
	adminGroup.Use(p.authMiddleware())

	adminGroup.GET("/logout", p.logout)
	adminGroup.GET("/api/stats", p.stats)
	adminGroup.GET("/api/attempts", p.attempts)
	adminGroup.POST("/privacy/cleanup", p.cleanup)
}
