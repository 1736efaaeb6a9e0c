package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong email or password. The two
// cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

const bcryptCost = 12

// Service authenticates the single site administrator.
type Service struct {
	email        string
	passwordHash []byte
	Tokens       *JWTManager
}

// NewService hashes the configured admin password once at startup.
func NewService(email, password string, tokens *JWTManager) (*Service, error) {
	return newService(email, password, tokens, bcryptCost)
}

func newService(email, password string, tokens *JWTManager, cost int) (*Service, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	return &Service{email: email, passwordHash: hash, Tokens: tokens}, nil
}

// AdminEmail returns the configured admin address.
func (s *Service) AdminEmail() string {
	return s.email
}

// Login checks the credentials and returns a signed token.
func (s *Service) Login(email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		return "", ErrInvalidCredentials
	}
	return s.Tokens.Generate(s.email)
}
