package services

import (
	"fmt"
	"time"

	"hotseat/game"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Claims bind a token to one room and, for players, one seat in it.
type Claims struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id,omitempty"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{secret: []byte(secret), ttl: ttl}
}

func (s *AuthService) IssueToken(roomID, playerID string, role Role) (string, error) {
	now := time.Now()
	claims := Claims{
		RoomID:   roomID,
		PlayerID: playerID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrUnauthorized, err)
	}
	if claims.RoomID == "" || (claims.Role != RoleHost && claims.Role != RolePlayer) {
		return nil, fmt.Errorf("%w: malformed claims", game.ErrUnauthorized)
	}
	return claims, nil
}

// HashSecret hashes host keys and player rejoin keys for storage.
func HashSecret(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func CheckSecret(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
