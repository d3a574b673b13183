package borrowing

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/catalog"
	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/notify"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
	"github.com/FCHEHIDI/Library-Management-System/internal/users"
)

// service implements the Service interface. Every state transition runs
// in one transaction holding row locks on the record and the affected
// user and book rows, so counters and availability flags cannot drift.
type service struct {
	db       *sql.DB
	repo     Repository
	books    catalog.Repository
	accounts users.Repository
	router   *notify.Router
	fees     FeeCalculator
	policies config.Policies
}

// NewService creates a new borrowing service instance.
func NewService(db *sql.DB, router *notify.Router, fees FeeCalculator, policies config.Policies) Service {
	return &service{
		db:       db,
		repo:     NewRepository(),
		books:    catalog.NewRepository(),
		accounts: users.NewRepository(),
		router:   router,
		fees:     fees,
		policies: policies,
	}
}

// Borrow lends a book to a user. The user must be ACTIVE with a verified
// email and below the borrowing cap; the book must be available and
// borrowable. The loan period depends on the book's category.
func (s *service) Borrow(ctx context.Context, userID, bookID uuid.UUID) (*Record, error) {
	var (
		record *Record
		rec    notify.Recipient
		n      *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "borrowing.borrow", func(tx *sql.Tx) error {
		user, err := s.accounts.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if ok, reason := user.CanBorrow(s.policies.MaxBooksPerUser); !ok {
			return liberr.PolicyViolation("%s", reason)
		}

		book, err := s.books.GetByIDForUpdate(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if ok, reason := book.CanBeBorrowed(); !ok {
			return liberr.PolicyViolation("%s", reason)
		}

		now := time.Now().UTC()
		period := s.policies.BorrowingPeriodDays(string(book.Category))
		record = &Record{
			ID:         uuid.New(),
			UserID:     user.ID,
			BookID:     book.ID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, period),
			Status:     StatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Insert(ctx, tx, record); err != nil {
			return err
		}

		book.Status = catalog.StatusBorrowed
		book.IsAvailable = false
		book.CurrentBorrowingCount++
		book.TotalBorrowings++
		book.LastBorrowedAt = &now
		if err := s.books.Update(ctx, tx, book); err != nil {
			return err
		}

		user.ActiveBorrowings++
		user.TotalBorrowings++
		if err := s.accounts.Update(ctx, tx, user); err != nil {
			return err
		}

		rec = notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}
		n = &notify.Notification{
			UserID:            user.ID,
			Title:             "Book Borrowed",
			Message:           fmt.Sprintf("You borrowed '%s'. It is due on %s.", book.Title, record.DueDate.Format("2006-01-02")),
			Type:              notify.TypeBorrowConfirmed,
			Priority:          notify.PriorityNormal,
			RelatedEntityType: "borrowing",
			RelatedEntityID:   record.ID.String(),
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, rec, n)
	return record, nil
}

// Extend pushes the due date forward. Extensions are rejected once the
// record is overdue (by date, not just stored status), returned, or at
// the extension cap. A non-positive days parameter uses the default.
func (s *service) Extend(ctx context.Context, id uuid.UUID, days int) (*Record, error) {
	if days <= 0 {
		days = s.policies.ExtensionDays
	}

	var (
		record *Record
		rec    notify.Recipient
		n      *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "borrowing.extend", func(tx *sql.Tx) error {
		var err error
		record, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if ok, reason := record.CanExtend(time.Now().UTC(), s.policies.MaxExtensions); !ok {
			return liberr.PolicyViolation("%s", reason)
		}

		record.DueDate = record.DueDate.AddDate(0, 0, days)
		record.ExtensionCount++
		record.Status = StatusExtended
		if err := s.repo.Update(ctx, tx, record); err != nil {
			return err
		}

		user, err := s.accounts.GetByID(ctx, tx, record.UserID)
		if err != nil {
			return err
		}
		rec = notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}
		n = &notify.Notification{
			UserID:            user.ID,
			Title:             "Borrowing Extended",
			Message:           fmt.Sprintf("Your borrowing was extended by %d days. New due date: %s.", days, record.DueDate.Format("2006-01-02")),
			Type:              notify.TypeExtensionApproved,
			Priority:          notify.PriorityNormal,
			RelatedEntityType: "borrowing",
			RelatedEntityID:   record.ID.String(),
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, rec, n)
	return record, nil
}

// Return closes a loan. Late fees accrue past the grace period; an
// optional damage report adds a damage fee and takes the book out of
// circulation instead of making it available again.
func (s *service) Return(ctx context.Context, id uuid.UUID, damage DamageLevel) (*ReturnResult, error) {
	return s.doReturn(ctx, id, damage, false)
}

// ForceReturn is the librarian variant of Return, used to close out a
// record regardless of who holds the book. No damage is recorded.
func (s *service) ForceReturn(ctx context.Context, id uuid.UUID) (*ReturnResult, error) {
	return s.doReturn(ctx, id, "", true)
}

func (s *service) doReturn(ctx context.Context, id uuid.UUID, damage DamageLevel, forced bool) (*ReturnResult, error) {
	var (
		result *ReturnResult
		rec    notify.Recipient
		n      *notify.Notification
	)
	name := "borrowing.return"
	if forced {
		name = "borrowing.force_return"
	}
	err := storage.WithTx(ctx, s.db, name, func(tx *sql.Tx) error {
		record, err := s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if record.Status == StatusReturned {
			return liberr.PolicyViolation("borrowing is already returned")
		}

		book, err := s.books.GetByIDForUpdate(ctx, tx, record.BookID)
		if err != nil {
			return err
		}
		user, err := s.accounts.GetByIDForUpdate(ctx, tx, record.UserID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		wasLate := record.IsOverdue(now)
		lateFee := s.fees.LateFee(record.DueDate, now)
		var damageFee float64
		if damage != "" {
			damageFee = s.fees.DamageFee(book.BasePrice, damage)
		}

		record.ReturnDate = &now
		record.Status = StatusReturned
		record.LateFee = lateFee
		record.DamageFee = damageFee
		record.TotalFee = s.fees.TotalFees(lateFee, damageFee)
		if err := s.repo.Update(ctx, tx, record); err != nil {
			return err
		}

		book.CurrentBorrowingCount--
		if damage != "" {
			book.Status = catalog.StatusDamaged
			book.IsAvailable = false
			book.PhysicalState = catalog.PhysicalDamaged
		} else {
			book.Status = catalog.StatusAvailable
			book.IsAvailable = true
		}
		if err := s.books.Update(ctx, tx, book); err != nil {
			return err
		}

		user.ActiveBorrowings--
		if wasLate {
			user.OverdueCount++
		}
		user.TotalFeesPaid += record.TotalFee
		if err := s.accounts.Update(ctx, tx, user); err != nil {
			return err
		}

		result = &ReturnResult{
			Record:    record,
			LateFee:   lateFee,
			DamageFee: damageFee,
			TotalFee:  record.TotalFee,
			WasLate:   wasLate,
		}

		title := "Book Returned"
		message := fmt.Sprintf("You returned '%s'. Thank you!", book.Title)
		priority := notify.PriorityNormal
		if record.TotalFee > 0 {
			title = "Book Returned - Fees Due"
			message = fmt.Sprintf("You returned '%s'. Fees due: EUR %.2f (late: %.2f, damage: %.2f).",
				book.Title, record.TotalFee, lateFee, damageFee)
			priority = notify.PriorityImportant
		}
		rec = notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}
		n = &notify.Notification{
			UserID:            user.ID,
			Title:             title,
			Message:           message,
			Type:              notify.TypeReturnConfirmed,
			Priority:          priority,
			RelatedEntityType: "borrowing",
			RelatedEntityID:   record.ID.String(),
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, rec, n)
	return result, nil
}

// WaiveFees zeroes a record's fees. The waiver policy gates eligibility;
// fees above the policy ceiling need a manual adjustment outside this
// path. Works on returned records too, since fees survive the return.
func (s *service) WaiveFees(ctx context.Context, id uuid.UUID, reason string) (*Record, error) {
	var (
		record *Record
		rec    notify.Recipient
		n      *notify.Notification
	)
	err := storage.WithTx(ctx, s.db, "borrowing.waive_fees", func(tx *sql.Tx) error {
		var err error
		record, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if record.TotalFee == 0 {
			return liberr.PolicyViolation("borrowing has no fees to waive")
		}
		if !s.fees.CanWaiveFee(record.TotalFee, reason) {
			return liberr.PolicyViolation("fee of EUR %.2f cannot be waived for reason %q", record.TotalFee, reason)
		}

		waived := record.TotalFee
		record.LateFee = 0
		record.DamageFee = 0
		record.TotalFee = 0
		if err := s.repo.Update(ctx, tx, record); err != nil {
			return err
		}

		user, err := s.accounts.GetByIDForUpdate(ctx, tx, record.UserID)
		if err != nil {
			return err
		}
		user.TotalFeesPaid -= waived
		if user.TotalFeesPaid < 0 {
			user.TotalFeesPaid = 0
		}
		if err := s.accounts.Update(ctx, tx, user); err != nil {
			return err
		}

		rec = notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}
		n = &notify.Notification{
			UserID:            user.ID,
			Title:             "Fees Waived",
			Message:           fmt.Sprintf("Fees of EUR %.2f on your borrowing have been waived. Reason: %s", waived, reason),
			Type:              notify.TypeFeeNotice,
			Priority:          notify.PriorityNormal,
			RelatedEntityType: "borrowing",
			RelatedEntityID:   record.ID.String(),
		}
		return s.router.Queue(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.router.Dispatch(ctx, rec, n)
	return record, nil
}

// DetectOverdue transitions open records past their due date to OVERDUE
// and notifies at URGENT priority. Idempotent: records already OVERDUE
// are not candidates, so a second run changes nothing and re-notifies
// nobody. A failed record is logged and skipped, not the whole batch.
func (s *service) DetectOverdue(ctx context.Context) (int, error) {
	ids, err := s.repo.OverdueCandidates(ctx, s.db, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		var (
			rec notify.Recipient
			n   *notify.Notification
		)
		err := storage.WithTx(ctx, s.db, "borrowing.detect_overdue", func(tx *sql.Tx) error {
			record, err := s.repo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			// Re-check under the lock: a concurrent return or extension
			// may have raced the candidate query.
			now := time.Now().UTC()
			if record.Status == StatusOverdue || !record.IsOverdue(now) {
				n = nil
				return nil
			}

			record.Status = StatusOverdue
			if err := s.repo.Update(ctx, tx, record); err != nil {
				return err
			}

			user, err := s.accounts.GetByID(ctx, tx, record.UserID)
			if err != nil {
				return err
			}
			book, err := s.books.GetByID(ctx, tx, record.BookID)
			if err != nil {
				return err
			}

			accrued := s.fees.AccruedLateFee(record.DueDate, now)
			rec = notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}
			n = &notify.Notification{
				UserID: user.ID,
				Title:  "Book Overdue",
				Message: fmt.Sprintf("'%s' was due on %s and is now %d days overdue. Current late fee: EUR %.2f.",
					book.Title, record.DueDate.Format("2006-01-02"), record.DaysOverdue(now), accrued),
				Type:              notify.TypeOverdueReminder,
				Priority:          notify.PriorityUrgent,
				RelatedEntityType: "borrowing",
				RelatedEntityID:   record.ID.String(),
			}
			return s.router.Queue(ctx, tx, n)
		})
		if err != nil {
			log.Printf("borrowing: overdue transition for %s failed: %v", id, err)
			continue
		}
		if n == nil {
			continue
		}
		s.router.Dispatch(ctx, rec, n)
		count++
	}
	return count, nil
}

// SendDueSoonReminders notifies holders of loans due inside the
// configured threshold. Reminder cadence follows the sweep cadence.
func (s *service) SendDueSoonReminders(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	to := now.AddDate(0, 0, s.policies.DueSoonThreshold)
	records, err := s.repo.DueSoon(ctx, s.db, now, to)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, record := range records {
		user, err := s.accounts.GetByID(ctx, s.db, record.UserID)
		if err != nil {
			log.Printf("borrowing: due-soon lookup for %s failed: %v", record.ID, err)
			continue
		}
		book, err := s.books.GetByID(ctx, s.db, record.BookID)
		if err != nil {
			log.Printf("borrowing: due-soon lookup for %s failed: %v", record.ID, err)
			continue
		}

		daysLeft := int(record.DueDate.Sub(now).Hours() / 24)
		n := &notify.Notification{
			Title: "Book Due Soon",
			Message: fmt.Sprintf("'%s' is due on %s (%d days left). Return or extend it to avoid late fees.",
				book.Title, record.DueDate.Format("2006-01-02"), daysLeft),
			Type:              notify.TypeDueSoonReminder,
			Priority:          notify.PriorityNormal,
			RelatedEntityType: "borrowing",
			RelatedEntityID:   record.ID.String(),
		}
		if _, err := s.router.Send(ctx, notify.Recipient{UserID: user.ID, Email: user.Email, Phone: user.Phone}, n); err != nil {
			log.Printf("borrowing: due-soon reminder for %s failed: %v", record.ID, err)
			continue
		}
		count++
	}
	return count, nil
}

// Get retrieves a borrowing record by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

// ListByUser returns a user's borrowing history.
func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, status *Status, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByUser(ctx, s.db, userID, status, limit, offset)
}

// OpenByUser returns the user's open borrowings, soonest due first.
func (s *service) OpenByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error) {
	return s.repo.OpenByUser(ctx, s.db, userID)
}

// ListByBook returns a book's borrowing history.
func (s *service) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]*Record, error) {
	return s.repo.ListByBook(ctx, s.db, bookID, limit)
}

// Overdue returns every record currently marked OVERDUE.
func (s *service) Overdue(ctx context.Context) ([]*Record, error) {
	return s.repo.Overdue(ctx, s.db)
}
