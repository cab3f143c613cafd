package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const staffTokenTTL = 24 * time.Hour

type AuthService interface {
	// StaffLogin exchanges the shared staff access key for a signed token.
	StaffLogin(accessKey string) (string, error)
	// ParseStaffToken validates a token and confirms the staff role.
	ParseStaffToken(token string) error
}

type authService struct {
	jwtSecret          []byte
	staffAccessKeyHash []byte
}

func NewAuthService(jwtSecret, staffAccessKeyHash string) AuthService {
	return &authService{
		jwtSecret:          []byte(jwtSecret),
		staffAccessKeyHash: []byte(staffAccessKeyHash),
	}
}

type staffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *authService) StaffLogin(accessKey string) (string, error) {
	err := bcrypt.CompareHashAndPassword(s.staffAccessKeyHash, []byte(accessKey))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrAuthInvalidKey
		}
		return "", fmt.Errorf("failed to compare access key hash: %w", err)
	}

	now := time.Now()
	claims := staffClaims{
		Role: "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(staffTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign staff token: %w", err)
	}
	return signed, nil
}

func (s *authService) ParseStaffToken(tokenString string) error {
	claims := &staffClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrAuthInvalidKey
	}
	if claims.Role != "staff" {
		return ErrAuthInvalidKey
	}
	return nil
}
