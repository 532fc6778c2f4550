package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-service/internal/models"
	"contract-service/internal/tenant"
)

const tenantContextKey = "tenant_context"

// Claims represents the JWT claims
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Recovery returns a middleware that recovers from panics
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithField("panic", recovered).Error("Panic recovered")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	})
}

// Logger returns a middleware that logs requests
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"path":    path,
			"ip":      c.ClientIP(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

// CORS returns a middleware that handles CORS
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Company-ID, X-User-ID, X-Role, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// TenantAuth validates the bearer token and stores the resulting tenant
// context on the request. When allowHeaders is set (development only),
// X-User-ID / X-Company-ID / X-Role headers are accepted in place of a
// token.
func TenantAuth(jwtSecret string, allowHeaders bool, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" && allowHeaders {
			tctx, err := contextFromHeaders(c)
			if err != nil {
				unauthorized(c, "INVALID_HEADERS", err.Error())
				return
			}
			c.Set(tenantContextKey, tctx)
			c.Next()
			return
		}

		if authHeader == "" {
			logger.Warn("Missing authorization header")
			unauthorized(c, "MISSING_TOKEN", "Authorization header is required")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			logger.Warn("Invalid authorization header format")
			unauthorized(c, "INVALID_TOKEN_FORMAT", "Authorization header must be in format: Bearer <token>")
			return
		}

		token, err := jwt.ParseWithClaims(tokenParts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			logger.WithError(err).Warn("Invalid or expired token")
			unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			logger.Warn("Invalid token claims")
			unauthorized(c, "INVALID_CLAIMS", "Invalid token claims")
			return
		}

		tctx, err := contextFromClaims(claims)
		if err != nil {
			logger.WithError(err).Warn("Malformed token claims")
			unauthorized(c, "INVALID_CLAIMS", err.Error())
			return
		}

		logger.WithFields(logrus.Fields{
			"user_id":    tctx.UserID,
			"company_id": claims.CompanyID,
			"role":       claims.Role,
		}).Debug("User authenticated successfully")

		c.Set(tenantContextKey, tctx)
		c.Next()
	}
}

// RequireSuperadmin restricts an endpoint to superadmin actors.
func RequireSuperadmin(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tctx, ok := TenantFromContext(c)
		if !ok || tctx.Role != models.RoleSuperadmin {
			logger.WithField("user_id", tctx.UserID).Warn("Superadmin access denied")
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Superadmin role required",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// TenantFromContext returns the tenant context placed on the request by
// TenantAuth.
func TenantFromContext(c *gin.Context) (tenant.Context, bool) {
	value, exists := c.Get(tenantContextKey)
	if !exists {
		return tenant.Context{}, false
	}
	tctx, ok := value.(tenant.Context)
	return tctx, ok
}

func contextFromClaims(claims *Claims) (tenant.Context, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return tenant.Context{}, fmt.Errorf("invalid user_id claim")
	}

	tctx := tenant.Context{
		UserID: userID,
		Role:   models.UserRole(claims.Role),
	}
	if claims.CompanyID != "" {
		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			return tenant.Context{}, fmt.Errorf("invalid company_id claim")
		}
		tctx.CompanyID = &companyID
	}
	return tctx, nil
}

func contextFromHeaders(c *gin.Context) (tenant.Context, error) {
	rawUser := c.GetHeader("X-User-ID")
	if rawUser == "" {
		return tenant.Context{}, fmt.Errorf("missing X-User-ID header")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return tenant.Context{}, fmt.Errorf("invalid X-User-ID header")
	}

	tctx := tenant.Context{
		UserID: userID,
		Role:   models.UserRole(c.GetHeader("X-Role")),
	}
	if raw := c.GetHeader("X-Company-ID"); raw != "" {
		companyID, err := uuid.Parse(raw)
		if err != nil {
			return tenant.Context{}, fmt.Errorf("invalid X-Company-ID header")
		}
		tctx.CompanyID = &companyID
	}
	return tctx, nil
}

func unauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	c.Abort()
}
