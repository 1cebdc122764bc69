package jwt

import (
	"time"
)

// DefaultExpiry matches the access token lifetime used when none is configured
const DefaultExpiry = 30 * time.Minute

// Service is a wrapper for JWT operations
type Service struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	return &Service{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Expiry returns the configured token lifetime
func (s *Service) Expiry() time.Duration {
	return s.expiry
}

// GenerateToken generates a JWT token for a user
func (s *Service) GenerateToken(userID uint, username string, role Role) (string, error) {
	return generateToken(s.secretKey, s.expiry, userID, username, role, s.now())
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return validateToken(s.secretKey, tokenString)
}
