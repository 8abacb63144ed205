package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/pkg/errors"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
)

// Request headers carrying the caller session and its authenticity token
const (
	HeaderSessionID = "X-Session-ID"
	HeaderToken     = "X-Optimus-Token"
)

// MsgSecurityCheckFailed is returned for a missing or wrong token
const MsgSecurityCheckFailed = "Verificarea de securitate a eșuat"

// TokenIssuer signs session ids
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates a TokenIssuer for secret
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Token is hex(HMAC-SHA256(secret, sessionID))
func (t *TokenIssuer) Token(sessionID string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares token to the expected one in constant time
func (t *TokenIssuer) Verify(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	expected, err := hex.DecodeString(t.Token(sessionID))
	if err != nil {
		return false
	}
	given, err := hex.DecodeString(strings.ToLower(token))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, given)
}

// RequireToken rejects requests whose token does not match their session
func RequireToken(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !issuer.Verify(c.GetHeader(HeaderSessionID), c.GetHeader(HeaderToken)) {
			middleware.AbortWithAppError(c, errors.ErrForbidden(MsgSecurityCheckFailed))
			return
		}
		c.Next()
	}
}

// SessionToken handles GET /api/v1/session-token
func SessionToken(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(HeaderSessionID)
		if sessionID == "" {
			middleware.AbortWithAppError(c, errors.ErrValidationWithFields("Sesiune lipsă", map[string]string{
				HeaderSessionID: "câmp obligatoriu",
			}))
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"token": issuer.Token(sessionID)}})
	}
}
