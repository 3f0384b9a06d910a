package middleware

import (
	"net/http"
	"time"

	"medvault-rag/internal/auth"
	"medvault-rag/internal/config"
	"medvault-rag/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type AuthMiddleware struct {
	config *config.Config
	rdb    *redis.Client
}

func NewAuthMiddleware(cfg *config.Config, rdb *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
		rdb:    rdb,
	}
}

func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Try to get access token from Authorization header
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			tokenString = utils.ExtractTokenFromHeader(authHeader)
		}

		// If no header token, try access_token cookie
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := auth.ValidateAccessToken(tokenString, a.rdb)
		if err != nil {
			// Try to auto-refresh using refresh token
			if refreshToken, cookieErr := c.Cookie("refresh_token"); cookieErr == nil && refreshToken != "" {
				refreshClaims, refreshErr := auth.ValidateRefreshToken(refreshToken, a.rdb)
				if refreshErr == nil {
					_ = auth.RevokeToken(refreshClaims.ID, true, a.rdb)

					tokenPair, issueErr := auth.IssueTokenPair(refreshClaims.UserID, refreshClaims.Name, a.rdb)
					if issueErr == nil {
						secure := a.config.GinMode == "release"
						c.SetSameSite(http.SameSiteLaxMode)
						c.SetCookie("access_token", tokenPair.AccessToken,
							int(1*time.Hour.Seconds()), "/", "", secure, true)
						c.SetCookie("refresh_token", tokenPair.RefreshToken,
							int(7*24*time.Hour.Seconds()), "/", "", secure, true)

						freshClaims, valErr := auth.ValidateAccessToken(tokenPair.AccessToken, a.rdb)
						if valErr == nil {
							claims = freshClaims
						}
					}
				}
			}

			if claims == nil {
				utils.RespondWithError(c, http.StatusUnauthorized,
					"session_expired",
					"Your session has expired. Please log in again.",
					gin.H{"error": err.Error()})
				c.Abort()
				return
			}
		}

		// Store user identity in context
		c.Set("user_id", claims.UserID)
		c.Set("profile_name", claims.Name)
		c.Set("claims", claims)

		c.Next()
	})
}

// RevokeUserSessions invalidates every outstanding access and refresh token
// for the user. Called when the user's vault is wiped so stale sessions
// cannot keep operating on an account whose data is gone.
func (a *AuthMiddleware) RevokeUserSessions(userID string) error {
	return auth.RevokeAllUserTokens(userID, a.rdb)
}

// GetUserID retrieves the authenticated user's ID from context
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetProfileName retrieves the owner's display name from context. This is
// the name reports are verified against.
func GetProfileName(c *gin.Context) string {
	if name, exists := c.Get("profile_name"); exists {
		if n, ok := name.(string); ok {
			return n
		}
	}
	return ""
}
