package notify

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
)

func TestPriorityChannels(t *testing.T) {
	assert.Equal(t, []Channel{ChannelInApp}, PriorityNormal.Channels())
	assert.Equal(t, []Channel{ChannelInApp, ChannelEmail}, PriorityImportant.Channels())
	assert.Equal(t, []Channel{ChannelInApp, ChannelEmail, ChannelSMS}, PriorityUrgent.Channels())
	assert.Equal(t, []Channel{ChannelInApp}, Priority("BOGUS").Channels())
}

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) Send(_ context.Context, to, _, _ string, _ bool) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sent = append(f.sent, to)
	return true, nil
}

type fakeSMS struct {
	sent []string
}

func (f *fakeSMS) Send(_ context.Context, to, _ string) (bool, error) {
	f.sent = append(f.sent, to)
	return true, nil
}

// disconnectedDB returns a handle that fails on use; dispatch treats the
// sent-timestamp stamping as best-effort, so tests without a database
// still exercise the channel routing.
func disconnectedDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func notification(priority Priority) *Notification {
	return &Notification{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Title:    "Test",
		Message:  "test message",
		Priority: priority,
	}
}

func TestDispatchNormalIsInAppOnly(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	router := NewRouter(disconnectedDB(t), config.Default(), email, sms)

	router.Dispatch(context.Background(), Recipient{Email: "a@example.com", Phone: "+100"}, notification(PriorityNormal))

	assert.Empty(t, email.sent)
	assert.Empty(t, sms.sent)
}

func TestDispatchImportantAddsEmail(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	router := NewRouter(disconnectedDB(t), config.Default(), email, sms)

	router.Dispatch(context.Background(), Recipient{Email: "a@example.com", Phone: "+100"}, notification(PriorityImportant))

	assert.Equal(t, []string{"a@example.com"}, email.sent)
	assert.Empty(t, sms.sent)
}

func TestDispatchUrgentAddsSMS(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	router := NewRouter(disconnectedDB(t), config.Default(), email, sms)

	router.Dispatch(context.Background(), Recipient{Email: "a@example.com", Phone: "+100"}, notification(PriorityUrgent))

	assert.Equal(t, []string{"a@example.com"}, email.sent)
	assert.Equal(t, []string{"+100"}, sms.sent)
}

func TestDispatchSkipsSMSWithoutPhone(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	router := NewRouter(disconnectedDB(t), config.Default(), email, sms)

	router.Dispatch(context.Background(), Recipient{Email: "a@example.com"}, notification(PriorityUrgent))

	assert.Equal(t, []string{"a@example.com"}, email.sent)
	assert.Empty(t, sms.sent)
}

func TestDispatchSwallowsGatewayFailures(t *testing.T) {
	email := &fakeEmail{err: errors.New("smtp down")}
	sms := &fakeSMS{}
	router := NewRouter(disconnectedDB(t), config.Default(), email, sms)

	// Must not panic or surface the error; SMS still goes out.
	router.Dispatch(context.Background(), Recipient{Email: "a@example.com", Phone: "+100"}, notification(PriorityUrgent))

	assert.Empty(t, email.sent)
	assert.Equal(t, []string{"+100"}, sms.sent)
}
