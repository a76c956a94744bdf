package accounts

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/judgeportal/internal/filex"
	"github.com/mcoot/judgeportal/internal/model"
)

// Service reads the account store. The file is re-read on every call so
// edits made by administrators take effect without a restart.
type Service struct {
	path   string
	logger *slog.Logger
}

// New creates a new account Service reading from path
func New(path string, logger *slog.Logger) *Service {
	return &Service{
		path:   path,
		logger: logger.With(slog.String("component", "accounts")),
	}
}

// Load reads and parses the whole account store
func (s *Service) Load(ctx context.Context) (model.Accounts, error) {
	data, err := filex.ReadFile(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var accounts model.Accounts
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse accounts %s: %w", s.path, err)
	}
	return accounts, nil
}

// Get returns the account for username
func (s *Service) Get(ctx context.Context, username string) (model.Account, error) {
	accounts, err := s.Load(ctx)
	if err != nil {
		return model.Account{}, err
	}

	account, ok := accounts[username]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return account, nil
}

// CheckPassword reports whether password matches the account.
//
// Accounts that never changed their password store it in plaintext and are
// compared directly (legacy behaviour of the account store, do not remove).
// Hashed passwords are bcrypt hashes or, for older accounts, hex md5.
func CheckPassword(account model.Account, password string) bool {
	if !account.PasswordHashed {
		return constantTimeEqual(account.Password, password)
	}

	if isBcryptHash(account.Password) {
		return bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) == nil
	}

	sum := md5.Sum([]byte(password))
	return constantTimeEqual(strings.ToLower(account.Password), hex.EncodeToString(sum[:]))
}

// HashPassword returns the bcrypt hash stored for hashed accounts
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
