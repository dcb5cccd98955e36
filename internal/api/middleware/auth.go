package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenDuration = 24 * time.Hour

type Claims struct {
	jwt.RegisteredClaims
	Kiosk string `json:"kiosk,omitempty"`
}

// AuthMiddleware checks HS256 bearer tokens. With an empty secret it is
// disabled and every request passes.
type AuthMiddleware struct {
	secret   []byte
	issuer   string
	keyHash  []byte
	tokenTTL time.Duration
}

type TokenRequest struct {
	Kiosk string `json:"kiosk" binding:"required"`
	Key   string `json:"key" binding:"required"`
}

type TokenResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

func NewAuthMiddleware(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), issuer: issuer}
}

// WithKioskKey lets kiosks exchange a shared key, stored as a bcrypt hash,
// for a bearer token.
func (a *AuthMiddleware) WithKioskKey(hash string, ttl time.Duration) *AuthMiddleware {
	a.keyHash = []byte(hash)
	a.tokenTTL = ttl
	return a
}

func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *AuthMiddleware) Enabled() bool {
	return len(a.secret) > 0
}

// GenerateToken issues a token for a kiosk or client name. A zero ttl
// means one day.
func (a *AuthMiddleware) GenerateToken(kiosk string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("auth is disabled")
	}
	if ttl == 0 {
		ttl = defaultTokenDuration
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   kiosk,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    a.issuer,
		},
		Kiosk: kiosk,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func tokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}

		claims, err := a.validateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

func (a *AuthMiddleware) TokenHandler(c *gin.Context) {
	if !a.Enabled() || len(a.keyHash) == 0 {
		c.JSON(http.StatusNotFound, TokenResponse{Success: false, Message: "Token exchange is disabled"})
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, TokenResponse{Success: false, Message: "Invalid request"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(a.keyHash, []byte(req.Key)); err != nil {
		c.JSON(http.StatusUnauthorized, TokenResponse{Success: false, Message: "Invalid key"})
		return
	}

	ttl := a.tokenTTL
	if ttl <= 0 {
		ttl = defaultTokenDuration
	}
	token, err := a.GenerateToken(req.Kiosk, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, TokenResponse{Success: false, Message: "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Success: true, Token: token, ExpiresIn: int64(ttl.Seconds())})
}
