package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/audit"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/auth"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "seoaudit_user_id"
	requestIDContextKey = "seoaudit_request_id"
	requestIDHeader     = "X-Request-Id"

	// demoUserID is the acting user when no valid session cookie is present.
	demoUserID int64 = 1
)

var (
	errMissingStore     = errors.New("store dependency required")
	errMissingAuditor   = errors.New("audit service dependency required")
	errMissingIssuer    = errors.New("session issuer dependency required")
	errMissingValidator = errors.New("session validator dependency required")
)

// SessionIssuer mints the demo session cookie.
type SessionIssuer interface {
	Issue(userID int64) (string, time.Time, error)
	SessionCookie(token string, expiresAt time.Time) *http.Cookie
	ClearedCookie() *http.Cookie
}

// SessionValidator resolves the session cookie of a request.
type SessionValidator interface {
	Authenticate(r *http.Request) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP layer to the rest of the application.
// AllowedOrigins lists the browser origins that may call the API with the
// session cookie; when empty any origin may call it without credentials.
type Dependencies struct {
	Store          storage.Store
	Auditor        *audit.Service
	Issuer         SessionIssuer
	Validator      SessionValidator
	AllowedOrigins []string
	Clock          func() time.Time
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin engine serving the JSON API and downloads.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Auditor == nil {
		return nil, errMissingAuditor
	}
	if deps.Issuer == nil {
		return nil, errMissingIssuer
	}
	if deps.Validator == nil {
		return nil, errMissingValidator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogMiddleware(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		store:     deps.Store,
		auditor:   deps.Auditor,
		issuer:    deps.Issuer,
		validator: deps.Validator,
		clock:     clock,
		logger:    logger,
	}

	api := router.Group("/api")
	api.Use(handler.resolveUser)

	api.GET("/user", handler.handleGetUser)
	api.GET("/repositories", handler.handleListRepositories)
	api.GET("/repositories/:id/audits", handler.handleListRepositoryAudits)
	api.POST("/audit", handler.handleRunAudit)
	api.POST("/ai-fix", handler.handleGenerateFixes)
	api.GET("/audits", handler.handleListAudits)
	api.GET("/audits/:id/fixes", handler.handleListAuditFixes)
	api.GET("/history", handler.handleHistory)
	api.GET("/reports", handler.handleReports)
	api.GET("/download/audit/:id", handler.handleDownloadAudit)
	api.GET("/download/fix/:id", handler.handleDownloadFix)
	api.GET("/login", handler.handleLogin)
	api.GET("/logout", handler.handleLogout)

	return router, nil
}

type httpHandler struct {
	store     storage.Store
	auditor   *audit.Service
	issuer    SessionIssuer
	validator SessionValidator
	clock     func() time.Time
	logger    *zap.Logger
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", requestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func requestLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Info("request served",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(started)),
		)
	}
}

// resolveUser records the acting user: the session subject when the cookie
// validates, the demo user otherwise.
func (h *httpHandler) resolveUser(c *gin.Context) {
	userID := demoUserID
	claims, err := h.validator.Authenticate(c.Request)
	switch {
	case err == nil:
		userID = claims.UserID
	case !errors.Is(err, auth.ErrNoSession):
		h.logger.Debug("ignoring invalid session cookie", zap.Error(err))
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

func actingUserID(c *gin.Context) int64 {
	if value, ok := c.Get(userIDContextKey); ok {
		if userID, ok := value.(int64); ok {
			return userID
		}
	}
	return demoUserID
}
