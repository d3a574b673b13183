package comments

import (
	"context"
	"database/sql"
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
		svc:      NewService(db, router, policies),
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
		LastName:      "Reviewer",
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

func (f *fixture) createBook(t *testing.T, isbn string) *catalog.Book {
	t.Helper()
	now := time.Now().UTC()
	b := &catalog.Book{
		ID:            uuid.New(),
		ISBN:          isbn,
		Title:         "Book " + isbn,
		Author:        "Author",
		Category:      catalog.CategoryGeneral,
		Status:        catalog.StatusAvailable,
		IsAvailable:   true,
		PhysicalState: catalog.PhysicalExcellent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.books.Insert(context.Background(), f.db, b))
	return b
}

func TestApproveCountsRatingExactlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "approver")
	book := f.createBook(t, "978-10-1")

	comment, err := f.svc.Add(ctx, user.ID, book.ID, 5, "A classic, loved every page.")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, comment.Status)

	comment, err = f.svc.Approve(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, comment.Status)

	got, err := f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRatings)
	assert.InDelta(t, 5.0, got.AverageRating, 0.0001)

	// Re-approving must fail and must not double count.
	_, err = f.svc.Approve(ctx, comment.ID)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)

	got, err = f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRatings)
	assert.InDelta(t, 5.0, got.AverageRating, 0.0001)
}

func TestRejectBacksOutApprovedRating(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "rejecter")
	book := f.createBook(t, "978-10-2")

	comment, err := f.svc.Add(ctx, user.ID, book.ID, 4, "Decent read overall, I think.")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, comment.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, comment.ID, "off-topic")
	require.NoError(t, err)

	got, err := f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalRatings)
	assert.Zero(t, got.AverageRating)
}

func TestOneCommentPerUserAndBook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "onceonly")
	book := f.createBook(t, "978-10-3")

	_, err := f.svc.Add(ctx, user.ID, book.ID, 3, "It was fine I suppose.")
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, user.ID, book.ID, 4, "Changed my mind, pretty good.")
	assert.ErrorIs(t, err, liberr.ErrConflict)
}

func TestOwnershipFailsClosed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	author := f.createUser(t, "author")
	stranger := f.createUser(t, "stranger")
	book := f.createBook(t, "978-10-4")

	comment, err := f.svc.Add(ctx, author.ID, book.ID, 2, "Not my kind of book at all.")
	require.NoError(t, err)

	newContent := "hijacked"
	_, err = f.svc.Edit(ctx, comment.ID, stranger.ID, EditInput{Content: &newContent})
	assert.ErrorIs(t, err, liberr.ErrUnauthorized)

	err = f.svc.Delete(ctx, comment.ID, stranger.ID)
	assert.ErrorIs(t, err, liberr.ErrUnauthorized)
}

func TestFlagThresholdHidesComment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "flagged")
	book := f.createBook(t, "978-10-5")

	comment, err := f.svc.Add(ctx, user.ID, book.ID, 1, "Some objectionable content here.")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, comment.ID)
	require.NoError(t, err)

	for i := 0; i <= f.policies.FlagThreshold; i++ {
		comment, err = f.svc.Flag(ctx, comment.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, StatusHidden, comment.Status)

	// Hiding an approved comment removes its rating contribution.
	got, err := f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalRatings)
}

func TestEditSendsBackToPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "editor")
	book := f.createBook(t, "978-10-6")

	comment, err := f.svc.Add(ctx, user.ID, book.ID, 5, "Initial five-star impression.")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, comment.ID)
	require.NoError(t, err)

	newRating := 3
	comment, err = f.svc.Edit(ctx, comment.ID, user.ID, EditInput{Rating: &newRating})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, comment.Status)
	assert.Equal(t, 3, comment.Rating)

	got, err := f.books.GetByID(ctx, f.db, book.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalRatings, "pending comments do not contribute ratings")
}
