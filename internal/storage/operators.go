package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"radiowave/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000
)

// CreateOperatorParams captures the attributes for a new operator account.
type CreateOperatorParams struct {
	Email       string
	DisplayName string
	Password    string
	Roles       []string
}

// CreateOperator registers an operator account with a hashed password.
func (s *Storage) CreateOperator(params CreateOperatorParams) (models.Operator, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return models.Operator{}, validationf("email is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return models.Operator{}, validationf("displayName is required")
	}
	if len(params.Password) < 8 {
		return models.Operator{}, validationf("password must be at least 8 characters")
	}

	roles := normalizeRoles(params.Roles)
	if len(roles) == 0 {
		roles = []string{"admin"}
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return models.Operator{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Operators {
		if strings.EqualFold(existing.Email, email) {
			return models.Operator{}, conflictf("email %s already registered", email)
		}
	}

	id, err := generateID()
	if err != nil {
		return models.Operator{}, err
	}

	operator := models.Operator{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		Roles:        roles,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	s.data.Operators[id] = operator
	if err := s.persist(); err != nil {
		delete(s.data.Operators, id)
		return models.Operator{}, err
	}

	return operator, nil
}

// GetOperator fetches a single operator account.
func (s *Storage) GetOperator(id string) (models.Operator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	operator, ok := s.data.Operators[id]
	return operator, ok
}

// FindOperatorByEmail performs a case-insensitive lookup.
func (s *Storage) FindOperatorByEmail(email string) (models.Operator, bool) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, operator := range s.data.Operators {
		if strings.EqualFold(operator.Email, email) {
			return operator, true
		}
	}
	return models.Operator{}, false
}

// ListOperators returns every operator account sorted by email.
func (s *Storage) ListOperators() []models.Operator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operators := make([]models.Operator, 0, len(s.data.Operators))
	for _, operator := range s.data.Operators {
		operators = append(operators, operator)
	}
	sort.Slice(operators, func(i, j int) bool {
		return operators[i].Email < operators[j].Email
	})
	return operators
}

// SetOperatorPassword rehashes and replaces an operator's password.
func (s *Storage) SetOperatorPassword(id, password string) (models.Operator, error) {
	if len(password) < 8 {
		return models.Operator{}, validationf("password must be at least 8 characters")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.Operator{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	operator, ok := s.data.Operators[id]
	if !ok {
		return models.Operator{}, notFoundf("operator %s not found", id)
	}
	previous := operator
	operator.PasswordHash = hash
	s.data.Operators[id] = operator
	if err := s.persist(); err != nil {
		s.data.Operators[id] = previous
		return models.Operator{}, err
	}
	return operator, nil
}

// AuthenticateOperator verifies credentials and returns the matching account.
// Wrong email and wrong password collapse into the same sentinel so callers
// cannot tell which part failed.
func (s *Storage) AuthenticateOperator(email, password string) (models.Operator, error) {
	if password == "" {
		return models.Operator{}, errors.New("password is required")
	}
	operator, ok := s.FindOperatorByEmail(email)
	if !ok {
		return models.Operator{}, ErrInvalidCredentials
	}
	if err := verifyPassword(operator.PasswordHash, password); err != nil {
		return models.Operator{}, err
	}
	return operator, nil
}

func normalizeRoles(roles []string) []string {
	normalized := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
