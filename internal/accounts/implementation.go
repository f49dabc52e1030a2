// internal/accounts/implementation.go
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"shelftrack/internal/clock"
	"shelftrack/internal/store"
)

const (
	BasePath      = "accounts"
	AccessLogPath = "access_log"
)

var (
	ErrNotFound         = errors.New("accounts: account not found")
	ErrDuplicateLogin   = errors.New("accounts: username or email already registered")
	ErrMissingField     = errors.New("accounts: username, email, name, role and password are required")
	ErrUnknownRole      = errors.New("accounts: role must be admin or staff")
	ErrBadCredentials   = errors.New("accounts: invalid credentials")
	ErrRateLimited      = errors.New("accounts: rate limit exceeded")
	ErrSessionNotFound  = errors.New("accounts: access log entry not found")
	ErrSessionClosed    = errors.New("accounts: session already logged out")
	ErrClockUnavailable = errors.New("accounts: shared clock unavailable")
)

// service implements the Service interface.
type service struct {
	store   store.Store
	clock   *clock.Source
	limiter *rate.Limiter
}

// NewService creates a new account service instance.
func NewService(st store.Store, clk *clock.Source) Service {
	return &service{
		store:   st,
		clock:   clk,
		limiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
	}
}

// Register creates a console login. Registration and authentication share
// one limiter so a flood of either backs off together.
func (s *service) Register(ctx context.Context, a Account, password string) (*Account, error) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	if a.Username == "" || a.Email == "" || a.Name == "" || a.Role == "" || password == "" {
		return nil, ErrMissingField
	}
	if a.Role != RoleAdmin && a.Role != RoleStaff {
		return nil, ErrUnknownRole
	}
	if err := s.checkLoginFree(ctx, a.Username, a.Email, ""); err != nil {
		return nil, err
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a.ID = uuid.NewString()
	a.PasswordHash = passwordHash
	a.Salt = salt
	if err := s.store.Set(ctx, BasePath+"/"+a.ID, a); err != nil {
		return nil, fmt.Errorf("write account %s: %w", a.ID, err)
	}
	return a.sanitized(), nil
}

// Authenticate checks the credentials and opens an access log entry. login
// matches the username or the email. The returned string is the entry id;
// Logout closes it.
func (s *service) Authenticate(ctx context.Context, login, password string) (*Account, string, error) {
	if !s.limiter.Allow() {
		return nil, "", ErrRateLimited
	}

	account, id, err := s.findByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}

	ok, err := verifyPassword(password, account.Salt, account.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, "", ErrBadCredentials
	}

	now, err := s.clock.Read(ctx)
	if errors.Is(err, clock.ErrAbsent) {
		return nil, "", ErrClockUnavailable
	}
	if err != nil {
		return nil, "", err
	}

	entryID := uuid.NewString()
	entry := AccessEntry{
		UserID:    id,
		Role:      account.Role,
		LoginTime: now.Format(time.RFC3339),
	}
	if err := s.store.Set(ctx, AccessLogPath+"/"+entryID, entry); err != nil {
		return nil, "", fmt.Errorf("write access log %s: %w", entryID, err)
	}

	account.ID = id
	return account.sanitized(), entryID, nil
}

// Logout stamps the session's logout time.
func (s *service) Logout(ctx context.Context, entryID string) error {
	snap, err := s.store.Get(ctx, AccessLogPath+"/"+entryID)
	if err != nil {
		return fmt.Errorf("read access log %s: %w", entryID, err)
	}
	if !snap.Exists() {
		return ErrSessionNotFound
	}
	if strings.TrimSpace(snap.Child("logout_time").Text()) != "" {
		return ErrSessionClosed
	}

	now, err := s.clock.Read(ctx)
	if errors.Is(err, clock.ErrAbsent) {
		return ErrClockUnavailable
	}
	if err != nil {
		return err
	}

	path := AccessLogPath + "/" + entryID + "/logout_time"
	if err := s.store.Set(ctx, path, now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write access log %s: %w", entryID, err)
	}
	return nil
}

// Update rewrites an account's profile fields, leaving the credentials
// alone.
func (s *service) Update(ctx context.Context, id string, a Account) error {
	if a.Username == "" || a.Email == "" || a.Name == "" || a.Role == "" {
		return ErrMissingField
	}
	if a.Role != RoleAdmin && a.Role != RoleStaff {
		return ErrUnknownRole
	}
	snap, err := s.store.Get(ctx, BasePath+"/"+id)
	if err != nil {
		return fmt.Errorf("read account %s: %w", id, err)
	}
	if !snap.Exists() {
		return ErrNotFound
	}
	if err := s.checkLoginFree(ctx, a.Username, a.Email, id); err != nil {
		return err
	}
	return s.store.Update(ctx, map[string]any{
		BasePath + "/" + id + "/username":          a.Username,
		BasePath + "/" + id + "/email":             a.Email,
		BasePath + "/" + id + "/name":              a.Name,
		BasePath + "/" + id + "/role":              a.Role,
		BasePath + "/" + id + "/profile_image":     a.ProfileImage,
		BasePath + "/" + id + "/recovery_question": a.RecoveryQuestion,
	})
}

func (s *service) Delete(ctx context.Context, id string) error {
	snap, err := s.store.Get(ctx, BasePath+"/"+id)
	if err != nil {
		return fmt.Errorf("read account %s: %w", id, err)
	}
	if !snap.Exists() {
		return ErrNotFound
	}
	return s.store.Delete(ctx, BasePath+"/"+id)
}

func (s *service) Get(ctx context.Context, id string) (*Account, error) {
	snap, err := s.store.Get(ctx, BasePath+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", id, err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	var account Account
	if err := snap.Decode(&account); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	account.ID = id
	return account.sanitized(), nil
}

func (s *service) List(ctx context.Context) ([]Account, error) {
	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	all := make([]Account, 0)
	for id, child := range snap.Children() {
		var account Account
		if err := child.Decode(&account); err != nil {
			continue
		}
		account.ID = id
		all = append(all, *account.sanitized())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return all, nil
}

// AccessLog returns every sign-in session, newest first.
func (s *service) AccessLog(ctx context.Context) ([]AccessEntry, error) {
	snap, err := s.store.Get(ctx, AccessLogPath)
	if err != nil {
		return nil, fmt.Errorf("read access log: %w", err)
	}
	entries := make([]AccessEntry, 0)
	for id, child := range snap.Children() {
		var entry AccessEntry
		if err := child.Decode(&entry); err != nil {
			continue
		}
		entry.ID = id
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LoginTime > entries[j].LoginTime })
	return entries, nil
}

func (s *service) checkLoginFree(ctx context.Context, username, email, selfID string) error {
	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return fmt.Errorf("read accounts: %w", err)
	}
	for id, child := range snap.Children() {
		if id == selfID {
			continue
		}
		if strings.EqualFold(child.Child("username").Text(), username) ||
			strings.EqualFold(child.Child("email").Text(), email) {
			return ErrDuplicateLogin
		}
	}
	return nil
}

func (s *service) findByLogin(ctx context.Context, login string) (*Account, string, error) {
	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return nil, "", fmt.Errorf("read accounts: %w", err)
	}
	for id, child := range snap.Children() {
		if !strings.EqualFold(child.Child("username").Text(), login) &&
			!strings.EqualFold(child.Child("email").Text(), login) {
			continue
		}
		var account Account
		if err := child.Decode(&account); err != nil {
			return nil, "", fmt.Errorf("decode account %s: %w", id, err)
		}
		return &account, id, nil
	}
	return nil, "", ErrNotFound
}
