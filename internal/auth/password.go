package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/repository"
)

// scrypt parameters match the stored credential format (N=16384, r=8, p=1, 32 byte key).
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltBytes    = 16
)

// unknownUserSalt feeds the key derivation run for names that do not exist,
// so a miss costs the same as a wrong password.
const unknownUserSalt = "0000000000000000"

// deriveKey is the scrypt derivation shared by hashing and verification.
var deriveKey = func(password, salt string) ([]byte, error) {
	return scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
}

// ErrInvalidCredentials is returned for every failed login, whatever the cause.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier checks a username/password pair against stored salted hashes.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (domain.Principal, error)
}

// UserLookup is the slice of the user repository the verifier needs.
type UserLookup interface {
	GetByName(ctx context.Context, name string) (*domain.User, error)
}

// ScryptVerifier verifies credentials hashed with scrypt and a per-user salt.
type ScryptVerifier struct {
	users UserLookup
}

// NewScryptVerifier builds a verifier over the user store.
func NewScryptVerifier(users UserLookup) *ScryptVerifier {
	return &ScryptVerifier{users: users}
}

// Verify resolves the principal for valid credentials.
func (v *ScryptVerifier) Verify(ctx context.Context, username, password string) (domain.Principal, error) {
	user, err := v.users.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_, _ = deriveKey(password, unknownUserSalt)
			return domain.Principal{}, ErrInvalidCredentials
		}
		return domain.Principal{}, err
	}
	if err := ComparePassword(user.Hash, user.Salt, password); err != nil {
		return domain.Principal{}, err
	}
	return user.Principal(), nil
}

// HashPassword derives the hex encoded scrypt key for password and salt.
func HashPassword(password, salt string) (string, error) {
	key, err := deriveKey(password, salt)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// ComparePassword verifies a password against its stored hash in constant time.
func ComparePassword(hashed, salt, plain string) error {
	want, err := hex.DecodeString(hashed)
	if err != nil {
		return ErrInvalidCredentials
	}
	got, err := deriveKey(plain, salt)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// NewSalt returns a random hex salt for a new account.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
