package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"intranet/internal/models"
	"intranet/internal/store"
	"intranet/pkg/auth"
)

// Roles stored on user accounts
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserExists is returned when creating an account for a taken email
	ErrUserExists = errors.New("a user with this email already exists")
	// ErrUserNotFound is returned when a token refers to a deleted account
	ErrUserNotFound = errors.New("user not found")
	// ErrAuthDisabled is returned when the server runs without a JWT secret
	ErrAuthDisabled = errors.New("authentication is disabled")
)

// UserService manages portal accounts and issues tokens
type UserService struct {
	store  store.Store
	tokens *auth.TokenService
	config *PortalConfigService
}

// NewUserService creates a new user service
func NewUserService(s store.Store, tokens *auth.TokenService, cfg *PortalConfigService) *UserService {
	return &UserService{store: s, tokens: tokens, config: cfg}
}

// Login checks the credentials and issues a token pair. The role claim is
// resolved here: admin accounts and emails on the admin lists get "admin".
func (s *UserService) Login(ctx context.Context, email, password string) (*auth.TokenPair, *models.PublicUser, error) {
	if s.tokens == nil {
		return nil, nil, ErrAuthDisabled
	}
	user, err := s.findByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil || !ok {
		log.Printf("🔒 [AUTH] Failed login for %s", email)
		return nil, nil, ErrInvalidCredentials
	}

	public := s.publicUser(ctx, user)
	pair, err := s.tokens.Issue(auth.Identity{ID: public.ID, Email: public.Email, Role: public.Role})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("✅ [AUTH] User %s logged in (role=%s)", public.Email, public.Role)
	return pair, public, nil
}

// Refresh exchanges a refresh token for a new pair, re-resolving the role
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if s.tokens == nil {
		return nil, ErrAuthDisabled
	}
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	public := s.publicUser(ctx, user)
	return s.tokens.Issue(auth.Identity{ID: public.ID, Email: public.Email, Role: public.Role})
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	record, err := s.store.Get(ctx, models.CollectionUsers, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := models.DecodeRecord(record, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the API view of the caller
func (s *UserService) Me(ctx context.Context, id *auth.Identity) *models.PublicUser {
	user, err := s.Get(ctx, id.ID)
	if err != nil {
		// Account gone or store unavailable: answer from the token alone
		return &models.PublicUser{
			ID:      id.ID,
			Email:   id.Email,
			Role:    id.Role,
			IsAdmin: id.IsAdmin() || s.config.IsAdminEmail(ctx, id.Email),
		}
	}
	return s.publicUser(ctx, user)
}

// Create adds a new account
func (s *UserService) Create(ctx context.Context, email, password, role, displayName string) (*models.PublicUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = RoleUser
	}

	user := &models.User{Email: email, Role: role, DisplayName: displayName}
	if err := models.Validate(user); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, &models.ValidationError{Problems: []string{err.Error()}}
	}

	if _, err := s.findByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	record, err := models.EncodeRecord(user)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.Add(ctx, models.CollectionUsers, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = stored.ID()

	log.Printf("👤 [AUTH] Created user %s (role=%s)", email, role)
	return s.publicUser(ctx, user), nil
}

// EnsureBootstrapAdmin creates the first admin account when the users collection is empty
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	records, err := s.store.List(ctx, models.CollectionUsers)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(records) > 0 {
		return nil
	}

	if _, err := s.Create(ctx, email, password, RoleAdmin, "Administrator"); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	log.Printf("🔑 [AUTH] Bootstrap admin %s created", email)
	return nil
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	records, err := s.store.List(ctx, models.CollectionUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for _, record := range records {
		if e, _ := record["email"].(string); strings.EqualFold(e, strings.TrimSpace(email)) {
			var user models.User
			if err := models.DecodeRecord(record, &user); err != nil {
				return nil, err
			}
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *UserService) publicUser(ctx context.Context, user *models.User) *models.PublicUser {
	role := user.Role
	if role != RoleAdmin && s.config.IsAdminEmail(ctx, user.Email) {
		role = RoleAdmin
	}
	if role == "" {
		role = RoleUser
	}
	return &models.PublicUser{
		ID:          user.ID,
		Email:       user.Email,
		Role:        role,
		DisplayName: user.DisplayName,
		IsAdmin:     role == RoleAdmin,
	}
}
