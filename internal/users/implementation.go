package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/notify"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

// service implements the Service interface.
type service struct {
	db       *sql.DB
	repo     Repository
	router   *notify.Router
	policies config.Policies
}

// NewService creates a new user service instance.
func NewService(db *sql.DB, router *notify.Router, policies config.Policies) Service {
	return &service{
		db:       db,
		repo:     NewRepository(),
		router:   router,
		policies: policies,
	}
}

// Register creates a new account in ACTIVE status with an unverified email.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Username == "" || in.Email == "" {
		return nil, liberr.PolicyViolation("username and email are required")
	}

	passwordHash, passwordSalt, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:            uuid.New(),
		Username:      in.Username,
		Email:         in.Email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Phone:         in.Phone,
		PasswordHash:  passwordHash,
		PasswordSalt:  passwordSalt,
		Status:        StatusActive,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a user's credentials and returns the user.
func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, s.db, username)
	if err != nil {
		return nil, liberr.Unauthorized("authentication failed")
	}

	ok, err := verifyPassword(password, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, liberr.Unauthorized("authentication failed")
	}
	return user, nil
}

// Get retrieves a user by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

// UpdateProfile applies a partial update limited to the profile fields a
// user may change themselves.
func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	var user *User
	err := storage.WithTx(ctx, s.db, "users.update_profile", func(tx *sql.Tx) error {
		var err error
		user, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.FirstName != nil {
			user.FirstName = *update.FirstName
		}
		if update.LastName != nil {
			user.LastName = *update.LastName
		}
		if update.Phone != nil {
			user.Phone = *update.Phone
		}
		return s.repo.Update(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail marks the user's email verified (librarian action).
func (s *service) VerifyEmail(ctx context.Context, id uuid.UUID) (*User, error) {
	var user *User
	err := storage.WithTx(ctx, s.db, "users.verify_email", func(tx *sql.Tx) error {
		var err error
		user, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		user.EmailVerified = true
		return s.repo.Update(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Stats returns a user's borrowing statistics.
func (s *service) Stats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	user, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	var currentOverdue int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM borrowings
		WHERE user_id = $1 AND status = 'OVERDUE'
	`, id).Scan(&currentOverdue)
	if err != nil {
		return nil, fmt.Errorf("count overdue borrowings: %w", err)
	}

	return &Stats{
		TotalBorrowings:   user.TotalBorrowings,
		ActiveBorrowings:  user.ActiveBorrowings,
		CurrentOverdue:    currentOverdue,
		TotalOverdueCount: user.OverdueCount,
		TotalFeesPaid:     user.TotalFeesPaid,
		Status:            user.Status,
		EmailVerified:     user.EmailVerified,
		MemberSince:       user.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Suspend puts the user into SUSPENDED for the given number of days.
// Banned users cannot be suspended.
func (s *service) Suspend(ctx context.Context, id uuid.UUID, days int, reason string) (*User, error) {
	var (
		user *User
		n    *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "users.suspend", func(tx *sql.Tx) error {
		var err error
		user, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if user.Status == StatusBanned {
			return liberr.PolicyViolation("cannot suspend banned users")
		}

		now := time.Now().UTC()
		end := now.AddDate(0, 0, days)
		user.Status = StatusSuspended
		user.SuspensionStart = &now
		user.SuspensionEnd = &end
		user.SuspensionReason = reason
		if err := s.repo.Update(ctx, tx, user); err != nil {
			return err
		}

		n = &notify.Notification{
			UserID:   user.ID,
			Title:    "Account Suspended",
			Message:  fmt.Sprintf("Your account has been suspended for %d days. Reason: %s", days, reason),
			Priority: notify.PriorityUrgent,
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}, n)
	return user, nil
}

// Ban permanently bans a user. Banning an already-suspended or already-banned
// user simply re-applies the ban.
func (s *service) Ban(ctx context.Context, id uuid.UUID, reason string) (*User, error) {
	var (
		user *User
		n    *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "users.ban", func(tx *sql.Tx) error {
		var err error
		user, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		user.Status = StatusBanned
		user.SuspensionReason = "PERMANENT BAN: " + reason
		if err := s.repo.Update(ctx, tx, user); err != nil {
			return err
		}

		n = &notify.Notification{
			UserID:   user.ID,
			Title:    "Account Banned",
			Message:  "Your account has been permanently banned. Reason: " + reason,
			Priority: notify.PriorityUrgent,
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}, n)
	return user, nil
}

// Unsuspend restores a suspended user to ACTIVE and clears the suspension
// window. Only valid from SUSPENDED.
func (s *service) Unsuspend(ctx context.Context, id uuid.UUID) (*User, error) {
	var (
		user *User
		n    *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "users.unsuspend", func(tx *sql.Tx) error {
		var err error
		user, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if user.Status != StatusSuspended {
			return liberr.PolicyViolation("user is not suspended")
		}

		user.Status = StatusActive
		user.SuspensionStart = nil
		user.SuspensionEnd = nil
		user.SuspensionReason = ""
		if err := s.repo.Update(ctx, tx, user); err != nil {
			return err
		}

		n = &notify.Notification{
			UserID:   user.ID,
			Title:    "Account Reactivated",
			Message:  "Your account suspension has been lifted. Welcome back!",
			Priority: notify.PriorityImportant,
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}, n)
	return user, nil
}

// List returns users with an optional status filter, newest first.
func (s *service) List(ctx context.Context, status *Status, limit, offset int) ([]*User, int, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.List(ctx, s.db, status, limit, offset)
}

// Suspended returns all currently suspended users.
func (s *service) Suspended(ctx context.Context) ([]*User, error) {
	return s.repo.Suspended(ctx, s.db)
}
