package auth

import (
	"errors"
	"strings"

	"dingbot/internal/platform/config"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrefix starts every API key. The key is "dbk_<name>_<random>".
const APIKeyPrefix = "dbk_"

var ErrInvalidAPIKey = errors.New("invalid api key")

// GenerateAPIKey returns a new raw key for name and the bcrypt hash to store
// in the api_keys config section. The raw key is not recoverable later.
func GenerateAPIKey(name string) (key, hash string, err error) {
	return generateAPIKey(name, bcrypt.DefaultCost)
}

func generateAPIKey(name string, cost int) (string, string, error) {
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", errors.New("api key name must be non-empty and contain no spaces")
	}
	key := APIKeyPrefix + strings.ToLower(name) + "_" + uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", "", err
	}
	return key, string(hash), nil
}

// APIKeyStore checks raw keys against configured bcrypt hashes.
type APIKeyStore struct {
	keys map[string]config.APIKeyConfig
}

func NewAPIKeyStore(keys map[string]config.APIKeyConfig) *APIKeyStore {
	return &APIKeyStore{keys: keys}
}

func (s *APIKeyStore) Len() int { return len(s.keys) }

// Validate returns claims for the key's name and robot scope.
func (s *APIKeyStore) Validate(key string) (*Claims, error) {
	rest, ok := strings.CutPrefix(key, APIKeyPrefix)
	if !ok {
		return nil, ErrInvalidAPIKey
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return nil, ErrInvalidAPIKey
	}
	name := rest[:i]

	cfg, ok := s.keys[name]
	if !ok {
		return nil, ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.Hash), []byte(key)); err != nil {
		return nil, ErrInvalidAPIKey
	}

	claims := &Claims{Robots: cfg.Robots}
	claims.Subject = name
	return claims, nil
}
