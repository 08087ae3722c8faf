package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nebulacoach/nebula-messaging/internal/types"
)

const (
	userIdClaim  = "user-id"
	bearerPrefix = "Bearer "
)

// bearerToken extracts the handshake token from the Authorization
// header, falling back to the token query parameter for browser
// websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix)
	}

	return r.URL.Query().Get("token")
}

func (s *MessagingApp) extractUserIdFromToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid user id claim")
	}

	return int(userId), nil
}

// authenticateRequest resolves the handshake token to an active user.
// Every failure mode returns ok=false and the connection proceeds
// unauthenticated; the socket is never refused here.
func (s *MessagingApp) authenticateRequest(r *http.Request) (types.User, bool) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return types.User{}, false
	}

	userId, err := s.extractUserIdFromToken(tokenString)
	if err != nil {
		s.log.Printf("failed to extract user id from token: %v", err)
		return types.User{}, false
	}

	user, err := s.db.GetUserById(userId)
	if err != nil {
		s.log.Printf("failed to resolve user %d: %v", userId, err)
		return types.User{}, false
	}

	if user.Status != types.StatusActive {
		s.log.Printf("rejecting session for inactive user %d", user.Id)
		return types.User{}, false
	}

	return types.User{
		Id:     user.Id,
		Name:   user.Name,
		Role:   user.Role,
		Status: user.Status,
	}, true
}
