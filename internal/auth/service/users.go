package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/cryptox"
	"github.com/laqq/authd/pkg/idx"
	"github.com/laqq/authd/pkg/slogx"
)

const minPasswordLength = 8

// UserService covers account administration plus the self-service profile
// operations. Authorization happens in the gate before any of these run.
type UserService struct {
	Store store.Store
}

type CreateUserInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Phone           string
	RoleID          *string
	IsStaff         bool
}

type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	RoleID    *string
	ClearRole bool
	IsActive  *bool
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if err := validateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return domain.User{}, err
	}
	if in.RoleID != nil {
		if _, err := s.Store.Roles().GetRoleByID(ctx, *in.RoleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.User{}, &ValidationError{Field: "role_id", Reason: "unknown role"}
			}
			return domain.User{}, err
		}
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		RoleID:       in.RoleID,
		IsActive:     true,
		IsStaff:      in.IsStaff,
		DateJoined:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, &ValidationError{Field: "email", Reason: "already in use"}
		}
		return domain.User{}, err
	}

	l.Info("user created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapStoreNotFound(err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// Update applies the provided fields; nil pointers leave the current value
// alone. ClearRole removes the role assignment entirely.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapStoreNotFound(err)
	}

	firstName := user.FirstName
	if in.FirstName != nil {
		firstName = strings.TrimSpace(*in.FirstName)
	}
	lastName := user.LastName
	if in.LastName != nil {
		lastName = strings.TrimSpace(*in.LastName)
	}
	phone := user.Phone
	if in.Phone != nil {
		phone = strings.TrimSpace(*in.Phone)
	}

	if err := s.Store.Users().UpdateProfile(ctx, user.ID, firstName, lastName, phone); err != nil {
		return domain.User{}, err
	}

	if in.ClearRole {
		if err := s.Store.Users().UpdateRole(ctx, user.ID, nil); err != nil {
			return domain.User{}, err
		}
	} else if in.RoleID != nil {
		if _, err := s.Store.Roles().GetRoleByID(ctx, *in.RoleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.User{}, &ValidationError{Field: "role_id", Reason: "unknown role"}
			}
			return domain.User{}, err
		}
		if err := s.Store.Users().UpdateRole(ctx, user.ID, in.RoleID); err != nil {
			return domain.User{}, err
		}
	}

	if in.IsActive != nil {
		if err := s.Store.Users().SetActive(ctx, user.ID, *in.IsActive); err != nil {
			return domain.User{}, err
		}
	}

	return s.Get(ctx, id)
}

// UpdateProfile is the self-service subset of Update: name and phone only.
func (s *UserService) UpdateProfile(ctx context.Context, userID, firstName, lastName, phone string) (domain.User, error) {
	if err := s.Store.Users().UpdateProfile(ctx, userID,
		strings.TrimSpace(firstName), strings.TrimSpace(lastName), strings.TrimSpace(phone)); err != nil {
		return domain.User{}, mapStoreNotFound(err)
	}
	return s.Get(ctx, userID)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		return mapStoreNotFound(err)
	}
	return nil
}

// ChangePassword lets a user rotate their own password after proving they
// know the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return mapStoreNotFound(err)
	}

	if err := cryptox.VerifyPassword(oldPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	l.Info("password changed", "user_id", user.ID)
	return nil
}

// ResetPassword is the administrative override: no old-password proof.
func (s *UserService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if err := validateNewPassword(newPassword, newPassword); err != nil {
		return err
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return mapStoreNotFound(err)
	}
	return nil
}

// ToggleActive flips the is_active flag and returns the new state.
func (s *UserService) ToggleActive(ctx context.Context, userID string) (bool, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return false, mapStoreNotFound(err)
	}
	next := !user.IsActive
	if err := s.Store.Users().SetActive(ctx, user.ID, next); err != nil {
		return false, err
	}
	return next, nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if password != confirm {
		return &ValidationError{Field: "password_confirm", Reason: "passwords do not match"}
	}
	return nil
}
