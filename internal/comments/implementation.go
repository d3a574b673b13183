package comments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/catalog"
	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/notify"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
	"github.com/FCHEHIDI/Library-Management-System/internal/users"
)

// service implements the Service interface. Rating bookkeeping follows
// one rule: a comment's rating is folded into the book's average while
// the comment is APPROVED and backed out on any transition away from
// APPROVED.
type service struct {
	db       *sql.DB
	repo     Repository
	books    catalog.Repository
	accounts users.Repository
	router   *notify.Router
	policies config.Policies
}

// NewService creates a new comment service instance.
func NewService(db *sql.DB, router *notify.Router, policies config.Policies) Service {
	return &service{
		db:       db,
		repo:     NewRepository(),
		books:    catalog.NewRepository(),
		accounts: users.NewRepository(),
		router:   router,
		policies: policies,
	}
}

// Add creates a comment in PENDING. One comment per (user, book); the
// precheck is backstopped by the unique index under races.
func (s *service) Add(ctx context.Context, userID, bookID uuid.UUID, rating int, content string) (*Comment, error) {
	if rating < 1 || rating > 5 {
		return nil, liberr.PolicyViolation("rating must be between 1 and 5")
	}
	if content == "" {
		return nil, liberr.PolicyViolation("comment content is required")
	}

	if _, err := s.books.GetByID(ctx, s.db, bookID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByUserAndBook(ctx, s.db, userID, bookID); err == nil {
		return nil, liberr.Conflict("user already commented on this book")
	}

	now := time.Now().UTC()
	comment := &Comment{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    bookID,
		Rating:    rating,
		Content:   content,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Edit changes a comment's rating or content. Only the author may edit;
// an edited comment goes back to PENDING for re-moderation, backing its
// rating out of the book average if it was approved.
func (s *service) Edit(ctx context.Context, id, userID uuid.UUID, edit EditInput) (*Comment, error) {
	if edit.Rating != nil && (*edit.Rating < 1 || *edit.Rating > 5) {
		return nil, liberr.PolicyViolation("rating must be between 1 and 5")
	}

	var comment *Comment
	err := storage.WithTx(ctx, s.db, "comments.edit", func(tx *sql.Tx) error {
		var err error
		comment, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if comment.UserID != userID {
			return liberr.Unauthorized("cannot edit other users' comments")
		}

		if comment.Status == StatusApproved {
			if err := s.unapplyRating(ctx, tx, comment); err != nil {
				return err
			}
		}
		if edit.Rating != nil {
			comment.Rating = *edit.Rating
		}
		if edit.Content != nil {
			comment.Content = *edit.Content
		}
		comment.Status = StatusPending
		return s.repo.Update(ctx, tx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes a comment. Only the author may delete; an approved
// comment's rating is backed out of the book average.
func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return storage.WithTx(ctx, s.db, "comments.delete", func(tx *sql.Tx) error {
		comment, err := s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if comment.UserID != userID {
			return liberr.Unauthorized("cannot delete other users' comments")
		}

		if comment.Status == StatusApproved {
			if err := s.unapplyRating(ctx, tx, comment); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// Flag reports a comment. Crossing the flag threshold hides it without
// librarian action and notifies the author.
func (s *service) Flag(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var (
		comment *Comment
		rec     notify.Recipient
		n       *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "comments.flag", func(tx *sql.Tx) error {
		var err error
		comment, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		comment.FlagCount++
		if comment.FlagCount > s.policies.FlagThreshold && comment.Status != StatusHidden {
			if comment.Status == StatusApproved {
				if err := s.unapplyRating(ctx, tx, comment); err != nil {
					return err
				}
			}
			comment.Status = StatusHidden

			author, err := s.accounts.GetByID(ctx, tx, comment.UserID)
			if err != nil {
				return err
			}
			rec = notify.Recipient{UserID: author.ID, Email: author.Email, Phone: author.Phone}
			n = &notify.Notification{
				UserID:            author.ID,
				Title:             "Comment Hidden",
				Message:           "Your comment has been hidden after multiple reports and is awaiting review.",
				Priority:          notify.PriorityImportant,
				RelatedEntityType: "comment",
				RelatedEntityID:   comment.ID.String(),
			}
			if err := s.router.Queue(ctx, tx, n); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, tx, comment)
	})
	if err != nil {
		return nil, err
	}

	if n != nil {
		s.router.Dispatch(ctx, rec, n)
	}
	return comment, nil
}

// Approve publishes a comment and folds its rating into the book's
// average. The guard checks the status before mutating it, so the
// rating of an already-approved comment is never counted twice.
func (s *service) Approve(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var comment *Comment
	err := storage.WithTx(ctx, s.db, "comments.approve", func(tx *sql.Tx) error {
		var err error
		comment, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if comment.Status == StatusApproved {
			return liberr.PolicyViolation("comment is already approved")
		}

		book, err := s.books.GetByIDForUpdate(ctx, tx, comment.BookID)
		if err != nil {
			return err
		}
		book.ApplyRating(comment.Rating)
		if err := s.books.Update(ctx, tx, book); err != nil {
			return err
		}

		comment.Status = StatusApproved
		return s.repo.Update(ctx, tx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Reject declines a comment and notifies the author with the reason. An
// approved comment's rating is backed out first.
func (s *service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Comment, error) {
	var (
		comment *Comment
		rec     notify.Recipient
		n       *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "comments.reject", func(tx *sql.Tx) error {
		var err error
		comment, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if comment.Status == StatusRejected {
			return liberr.PolicyViolation("comment is already rejected")
		}

		if comment.Status == StatusApproved {
			if err := s.unapplyRating(ctx, tx, comment); err != nil {
				return err
			}
		}
		comment.Status = StatusRejected
		if err := s.repo.Update(ctx, tx, comment); err != nil {
			return err
		}

		author, err := s.accounts.GetByID(ctx, tx, comment.UserID)
		if err != nil {
			return err
		}
		rec = notify.Recipient{UserID: author.ID, Email: author.Email, Phone: author.Phone}
		n = &notify.Notification{
			UserID:            author.ID,
			Title:             "Comment Rejected",
			Message:           fmt.Sprintf("Your comment was not approved. Reason: %s", reason),
			Priority:          notify.PriorityNormal,
			RelatedEntityType: "comment",
			RelatedEntityID:   comment.ID.String(),
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, rec, n)
	return comment, nil
}

// unapplyRating backs the comment's rating out of the book's average,
// holding the book row lock.
func (s *service) unapplyRating(ctx context.Context, tx *sql.Tx, comment *Comment) error {
	book, err := s.books.GetByIDForUpdate(ctx, tx, comment.BookID)
	if err != nil {
		return err
	}
	book.RemoveRating(comment.Rating)
	return s.books.Update(ctx, tx, book)
}

// Get retrieves a comment by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Comment, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

// ApprovedByBook returns a book's published comments.
func (s *service) ApprovedByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]*Comment, error) {
	return s.repo.ApprovedByBook(ctx, s.db, bookID, limit)
}

// Pending returns the moderation queue, oldest first.
func (s *service) Pending(ctx context.Context, limit int) ([]*Comment, error) {
	return s.repo.Pending(ctx, s.db, limit)
}

// ListByUser returns a user's comments.
func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Comment, error) {
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}
