package remote

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingCredentials is returned when the auth frame carries no credentials
	ErrMissingCredentials = errors.New("JWT was not passed in connection request")

	// ErrBadCredentials is returned when verification fails
	ErrBadCredentials = errors.New("Credentials are incorrect")
)

// Authenticator verifies the credentials of an auth frame and returns the
// name of the authenticated user
type Authenticator interface {
	Authenticate(f Frame) (string, error)
}

// Claims are the JWT claims of a remote CLI token
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Credentials authenticates with an RS256 JWT, a bcrypt-hashed password, or both
type Credentials struct {
	publicKey    *rsa.PublicKey
	passwordHash []byte
}

var _ Authenticator = (*Credentials)(nil)

// NewCredentials creates an authenticator. At least one of publicKey and
// passwordHash must be set.
func NewCredentials(publicKey *rsa.PublicKey, passwordHash string) (*Credentials, error) {
	if publicKey == nil && passwordHash == "" {
		return nil, errors.New("remote cli needs a public key or a password hash")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid password hash: %w", err)
		}
	}

	c := &Credentials{publicKey: publicKey}
	if passwordHash != "" {
		c.passwordHash = []byte(passwordHash)
	}
	return c, nil
}

// Authenticate checks the JWT when one is passed, else the password
func (c *Credentials) Authenticate(f Frame) (string, error) {
	switch {
	case f.JWT != "":
		if c.publicKey == nil {
			return "", ErrBadCredentials
		}
		claims, err := VerifyToken(f.JWT, c.publicKey)
		if err != nil {
			return "", ErrBadCredentials
		}
		if claims.Username != "" {
			return claims.Username, nil
		}
		return claims.Subject, nil

	case f.Password != "":
		if c.passwordHash == nil {
			return "", ErrBadCredentials
		}
		if bcrypt.CompareHashAndPassword(c.passwordHash, []byte(f.Password)) != nil {
			return "", ErrBadCredentials
		}
		return "password", nil
	}
	return "", ErrMissingCredentials
}

// LoadPublicKey reads a PEM encoded RSA public key
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key %s: %w", path, err)
	}
	return key, nil
}

// LoadPrivateKey reads a PEM encoded RSA private key
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return key, nil
}

// SignToken mints an RS256 token for username valid for ttl
func SignToken(key *rsa.PrivateKey, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

// VerifyToken validates an RS256 token against key
func VerifyToken(token string, key *rsa.PublicKey) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// HashPassword hashes a password for REMOTE_CLI_PASSWORD_HASH. Passwords
// longer than 72 bytes are rejected, bcrypt would truncate them.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) > 72 {
		return "", fmt.Errorf("password exceeds maximum length of 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
