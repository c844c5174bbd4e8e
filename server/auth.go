package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type contextKey string

const (
	defaultExpireTime = 7 * 24 * time.Hour
	anonymous         = "anonymous"

	UserContextKey = contextKey("user")
)

var ErrNoSecret = errors.New("server: no token secret configured")

type Claims struct {
	Name string `json:"name"`
	jwt.StandardClaims
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
}

// Auth signs and checks HS256 access tokens. An Auth without a secret lets
// every request through as an anonymous viewer.
type Auth struct {
	secret []byte
	expire time.Duration
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret), expire: defaultExpireTime}
}

func (a *Auth) Enabled() bool { return a != nil && len(a.secret) > 0 }

func (a *Auth) CreateJWTToken(name string) (*TokenResponse, error) {
	if !a.Enabled() {
		return nil, ErrNoSecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Name: name,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(a.expire).Unix(),
		},
	})
	accessToken, err := token.SignedString(a.secret)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{accessToken, name}, nil
}

func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	if !a.Enabled() {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Middleware requires a valid ?token= when a secret is configured and stores
// the viewer's name in the request context.
func (a *Auth) Middleware(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			f(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, anonymous)))
			return
		}
		token := r.URL.Query().Get("token")
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := a.ValidateToken(token)
		if err != nil {
			respondWithError(w, http.StatusForbidden, "invalid token")
			return
		}
		f(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, claims.Name)))
	}
}
