package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/Library-Management-System/internal/catalog"
	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/notify"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage/storagetest"
	"github.com/FCHEHIDI/Library-Management-System/internal/users"
)

type fixture struct {
	db       *sql.DB
	svc      Service
	users    users.Repository
	books    catalog.Repository
	policies config.Policies
}

func setup(t *testing.T) *fixture {
	db := storagetest.Open(t)
	policies := config.Default()
	router := notify.NewRouter(db, policies, &notify.LogEmailGateway{From: "test@example.com"}, &notify.LogSMSGateway{})
	return &fixture{
		db:       db,
		svc:      NewService(db, router, NewFeeCalculator(policies), policies),
		users:    users.NewRepository(),
		books:    catalog.NewRepository(),
		policies: policies,
	}
}

func (f *fixture) createUser(t *testing.T, username string) *users.User {
	t.Helper()
	now := time.Now().UTC()
	u := &users.User{
		ID:            uuid.New(),
		Username:      username,
		Email:         username + "@example.com",
		FirstName:     "Test",
		LastName:      "Reader",
		Phone:         "+10000000",
		PasswordHash:  "hash",
		PasswordSalt:  "salt",
		Status:        users.StatusActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.users.Insert(context.Background(), f.db, u))
	return u
}

func (f *fixture) createBook(t *testing.T, isbn string, category catalog.Category) *catalog.Book {
	t.Helper()
	now := time.Now().UTC()
	b := &catalog.Book{
		ID:            uuid.New(),
		ISBN:          isbn,
		Title:         "Book " + isbn,
		Author:        "Author",
		Category:      category,
		Status:        catalog.StatusAvailable,
		IsAvailable:   true,
		PhysicalState: catalog.PhysicalExcellent,
		BasePrice:     20.00,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.books.Insert(context.Background(), f.db, b))
	return b
}

func (f *fixture) backdateDue(t *testing.T, id uuid.UUID, days int) {
	t.Helper()
	_, err := f.db.Exec(`UPDATE borrowings SET due_date = NOW() - make_interval(days => $2) WHERE id = $1`, id, days)
	require.NoError(t, err)
}

func TestBorrowLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "lifecycle")
	book := f.createBook(t, "978-0-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, record.Status)
	assert.WithinDuration(t, record.BorrowDate.AddDate(0, 0, f.policies.DefaultPeriod), record.DueDate, time.Second)

	got, err := f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusBorrowed, got.Status)
	assert.False(t, got.IsAvailable)
	assert.Equal(t, 1, got.TotalBorrowings)

	u, err := f.users.GetByID(ctx, f.db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.ActiveBorrowings)

	record, err = f.svc.Extend(ctx, record.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusExtended, record.Status)
	assert.Equal(t, 1, record.ExtensionCount)

	result, err := f.svc.Return(ctx, record.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, result.Record.Status)
	assert.NotNil(t, result.Record.ReturnDate)
	assert.Zero(t, result.TotalFee)

	got, err = f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)

	u, err = f.users.GetByID(ctx, f.db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, u.ActiveBorrowings)

	_, err = f.svc.Return(ctx, record.ID, "")
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)
}

func TestBorrowGuards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reference := f.createBook(t, "978-0-2", catalog.CategoryReference)
	user := f.createUser(t, "guards")
	_, err := f.svc.Borrow(ctx, user.ID, reference.ID)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)

	unverified := f.createUser(t, "unverified")
	_, err = f.db.Exec(`UPDATE users SET email_verified = FALSE WHERE id = $1`, unverified.ID)
	require.NoError(t, err)
	book := f.createBook(t, "978-0-3", catalog.CategoryGeneral)
	_, err = f.svc.Borrow(ctx, unverified.ID, book.ID)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)

	// Filling the borrowing cap blocks the next borrow.
	for i := 0; i < f.policies.MaxBooksPerUser; i++ {
		b := f.createBook(t, "978-1-"+string(rune('0'+i)), catalog.CategoryGeneral)
		_, err := f.svc.Borrow(ctx, user.ID, b.ID)
		require.NoError(t, err)
	}
	extra := f.createBook(t, "978-0-4", catalog.CategoryGeneral)
	_, err = f.svc.Borrow(ctx, user.ID, extra.ID)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)
}

func TestCategoryPeriods(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "periods")

	children := f.createBook(t, "978-2-1", catalog.CategoryChildren)
	record, err := f.svc.Borrow(ctx, user.ID, children.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, record.BorrowDate.AddDate(0, 0, f.policies.ChildrenPeriod), record.DueDate, time.Second)

	academic := f.createBook(t, "978-2-2", catalog.CategoryAcademic)
	record, err = f.svc.Borrow(ctx, user.ID, academic.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, record.BorrowDate.AddDate(0, 0, f.policies.AcademicPeriod), record.DueDate, time.Second)
}

func TestConcurrentBorrowSameBook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.createBook(t, "978-3-1", catalog.CategoryGeneral)

	const attempts = 4
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		user := f.createUser(t, "racer"+string(rune('0'+i)))
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Borrow(ctx, userID, book.ID)
			results <- err
		}(user.ID)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t,
				errors.Is(err, liberr.ErrPolicyViolation) || errors.Is(err, liberr.ErrConflict),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent borrow may succeed")
}

func TestOverdueDetectionIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "overdue")
	book := f.createBook(t, "978-4-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)
	f.backdateDue(t, record.ID, 10)

	count, err := f.svc.DetectOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = f.svc.DetectOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "second sweep must not re-transition")

	var notifications int
	err = f.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND type = 'OVERDUE_REMINDER'`, user.ID).Scan(&notifications)
	require.NoError(t, err)
	assert.Equal(t, 1, notifications, "second sweep must not re-notify")
}

func TestLateReturnChargesFee(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "latefee")
	book := f.createBook(t, "978-5-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)
	// 10 days late: 7 chargeable after the 3-day grace, 7 * 0.50 = 3.50.
	f.backdateDue(t, record.ID, 10)

	result, err := f.svc.Return(ctx, record.ID, "")
	require.NoError(t, err)
	assert.True(t, result.WasLate)
	assert.InDelta(t, 3.50, result.LateFee, 0.001)
	assert.InDelta(t, 3.50, result.TotalFee, 0.001)

	u, err := f.users.GetByID(ctx, f.db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.OverdueCount)
	assert.InDelta(t, 3.50, u.TotalFeesPaid, 0.001)
}

func TestReturnWithDamage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "damage")
	book := f.createBook(t, "978-6-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)

	result, err := f.svc.Return(ctx, record.ID, DamageModerate)
	require.NoError(t, err)
	assert.Zero(t, result.LateFee)
	assert.InDelta(t, 10.00, result.DamageFee, 0.001)
	assert.InDelta(t, result.DamageFee, result.TotalFee, 0.001)

	got, err := f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusDamaged, got.Status)
	assert.False(t, got.IsAvailable)
}

func TestExtendCapAndOverdueRejection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "extender")
	book := f.createBook(t, "978-7-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)

	for i := 0; i < f.policies.MaxExtensions; i++ {
		record, err = f.svc.Extend(ctx, record.ID, 0)
		require.NoError(t, err)
	}
	_, err = f.svc.Extend(ctx, record.ID, 0)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)

	other := f.createBook(t, "978-7-2", catalog.CategoryGeneral)
	overdue, err := f.svc.Borrow(ctx, user.ID, other.ID)
	require.NoError(t, err)
	f.backdateDue(t, overdue.ID, 1)
	_, err = f.svc.Extend(ctx, overdue.ID, 0)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)
}

func TestWaiveFees(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "waiver")
	book := f.createBook(t, "978-8-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)
	f.backdateDue(t, record.ID, 10)
	_, err = f.svc.Return(ctx, record.ID, "")
	require.NoError(t, err)

	_, err = f.svc.WaiveFees(ctx, record.ID, "no good reason at all here")
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)

	waived, err := f.svc.WaiveFees(ctx, record.ID, "waived as a first offense")
	require.NoError(t, err)
	assert.Zero(t, waived.TotalFee)
	assert.Zero(t, waived.LateFee)

	u, err := f.users.GetByID(ctx, f.db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, u.TotalFeesPaid)
}

func TestDueSoonReminders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "duesoon")
	book := f.createBook(t, "978-9-1", catalog.CategoryGeneral)

	record, err := f.svc.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)
	_, err = f.db.Exec(`UPDATE borrowings SET due_date = NOW() + INTERVAL '1 day' WHERE id = $1`, record.ID)
	require.NoError(t, err)

	count, err := f.svc.SendDueSoonReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
