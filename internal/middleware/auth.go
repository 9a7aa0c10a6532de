package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"carservice/internal/model"
	"carservice/internal/service"
	"carservice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// AuthConfig is installed once at startup with InitAuth
type AuthConfig struct {
	Secret        []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SecureCookies bool // SameSite=None + Secure for cross-origin production deployments
}

var authCfg = AuthConfig{AccessTTL: 24 * time.Hour, RefreshTTL: 7 * 24 * time.Hour}

// InitAuth sets the signing secret and cookie policy used by every guard
func InitAuth(cfg AuthConfig) {
	authCfg = cfg
}

var errInvalidToken = errors.New("invalid token")

// ParseToken validates an HMAC-signed access token and returns the principal it names
func ParseToken(tokenString string) (service.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return authCfg.Secret, nil
	})
	if err != nil {
		return service.Principal{}, err
	}
	if !token.Valid {
		return service.Principal{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return service.Principal{}, errInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return service.Principal{}, errInvalidToken
	}
	role := model.Role(stringClaim(claims, "role"))
	if !role.Valid() {
		return service.Principal{}, errInvalidToken
	}
	return service.Principal{ID: id, Role: role}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	if authCfg.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, accessToken, int(authCfg.AccessTTL.Seconds()), "/", "", authCfg.SecureCookies, true)
	c.SetCookie(refreshCookie, refreshToken, int(authCfg.RefreshTTL.Seconds()), "/", "", authCfg.SecureCookies, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if authCfg.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, "", -1, "/", "", authCfg.SecureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", authCfg.SecureCookies, true)
}

// RefreshTokenFromCookie returns the refresh token cookie, empty when absent
func RefreshTokenFromCookie(c *gin.Context) string {
	token, err := c.Cookie(refreshCookie)
	if err != nil {
		return ""
	}
	return token
}

func bearerToken(c *gin.Context) (string, string) {
	// Try cookie first, fallback to Authorization header
	if token, err := c.Cookie(accessCookie); err == nil && token != "" {
		return token, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// RequireRole validates the JWT and checks the caller's role against allowedRoles.
// A mismatch answers 403 with the caller's own landing page.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Redirect(http.StatusUnauthorized, problem, service.LandingPath("")))
			return
		}

		principal, err := ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Redirect(http.StatusUnauthorized, "Invalid token: "+err.Error(), service.LandingPath("")))
			return
		}

		if err := service.Authorize(principal, allowedRoles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Redirect(http.StatusForbidden,
				"Access denied: insufficient permissions", service.LandingPath(principal.Role)))
			return
		}

		c.Set(ctxUserID, principal.ID)
		c.Set(ctxUserRole, principal.Role)
		c.Next()
	}
}

// RequireAuth accepts any signed-in role
func RequireAuth() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer)
}

// CurrentPrincipal reads the caller set by RequireRole. The zero Principal is
// returned on unguarded routes and is rejected by every service check.
func CurrentPrincipal(c *gin.Context) service.Principal {
	var p service.Principal
	if id, ok := c.Get(ctxUserID); ok {
		p.ID, _ = id.(uuid.UUID)
	}
	if role, ok := c.Get(ctxUserRole); ok {
		p.Role, _ = role.(model.Role)
	}
	return p
}
