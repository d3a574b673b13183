package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

// Router creates in-app notifications and mirrors them to email/SMS based
// on priority. In-app creation is transactional with the calling domain
// operation; channel dispatch is best-effort after commit and never fails
// the primary operation.
type Router struct {
	db       *sql.DB
	policies config.Policies
	email    EmailGateway
	sms      SMSGateway

	emailBreaker *gobreaker.CircuitBreaker
	smsBreaker   *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	tracer       trace.Tracer
}

var _ Service = (*Router)(nil)

// NewRouter creates a notification router. Gateways are wrapped in circuit
// breakers so a dead provider stops burning request time, and outbound
// sends share a rate limiter.
func NewRouter(db *sql.DB, policies config.Policies, email EmailGateway, sms SMSGateway) *Router {
	return &Router{
		db:           db,
		policies:     policies,
		email:        email,
		sms:          sms,
		emailBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "email-gateway"}),
		smsBreaker:   gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "sms-gateway"}),
		limiter:      rate.NewLimiter(rate.Every(100*time.Millisecond), 20),
		tracer:       otel.Tracer("library/notify"),
	}
}

// Queue inserts the in-app notification row using the caller's querier,
// typically a transaction owned by a domain operation. The row commits or
// rolls back together with the rest of that operation.
func (r *Router) Queue(ctx context.Context, q storage.Querier, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = TypeGeneral
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	n.CreatedAt = time.Now().UTC()

	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications
			(id, user_id, title, message, type, priority, is_read,
			 related_entity_type, related_entity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8, $9)
	`, n.ID, n.UserID, n.Title, n.Message, n.Type, n.Priority,
		nullString(n.RelatedEntityType), nullString(n.RelatedEntityID), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", storage.MapError(err))
	}
	return nil
}

// Dispatch delivers a queued notification to its secondary channels.
// Failures are logged and swallowed; the in-app notification already
// committed and stays authoritative. SMS is skipped silently when the
// recipient has no phone number on file.
func (r *Router) Dispatch(ctx context.Context, rec Recipient, n *Notification) {
	ctx, span := r.tracer.Start(ctx, "notify.dispatch",
		trace.WithAttributes(
			attribute.String("notification.id", n.ID.String()),
			attribute.String("notification.priority", string(n.Priority)),
		),
	)
	defer span.End()

	for _, ch := range n.Priority.Channels() {
		switch ch {
		case ChannelEmail:
			if rec.Email == "" {
				continue
			}
			if !r.limiter.Allow() {
				log.Printf("notify: email to %s skipped, rate limit exceeded", rec.Email)
				continue
			}
			_, err := r.emailBreaker.Execute(func() (any, error) {
				ok, err := r.email.Send(ctx, rec.Email, n.Title, n.Message, false)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, fmt.Errorf("email gateway rejected message")
				}
				return nil, nil
			})
			if err != nil {
				log.Printf("notify: email dispatch for %s failed: %v", n.ID, err)
				continue
			}
			r.stampSent(ctx, n, ChannelEmail)
		case ChannelSMS:
			if rec.Phone == "" {
				continue
			}
			if !r.limiter.Allow() {
				log.Printf("notify: sms to user %s skipped, rate limit exceeded", rec.UserID)
				continue
			}
			_, err := r.smsBreaker.Execute(func() (any, error) {
				ok, err := r.sms.Send(ctx, rec.Phone, n.Message)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, fmt.Errorf("sms gateway rejected message")
				}
				return nil, nil
			})
			if err != nil {
				log.Printf("notify: sms dispatch for %s failed: %v", n.ID, err)
				continue
			}
			r.stampSent(ctx, n, ChannelSMS)
		}
	}
}

func (r *Router) stampSent(ctx context.Context, n *Notification, ch Channel) {
	now := time.Now().UTC()
	column := "email_sent_at"
	if ch == ChannelSMS {
		column = "sms_sent_at"
	}
	query := fmt.Sprintf("UPDATE notifications SET %s = $1 WHERE id = $2", column)
	if _, err := r.db.ExecContext(ctx, query, now, n.ID); err != nil {
		log.Printf("notify: stamping %s for %s failed: %v", column, n.ID, err)
		return
	}
	if ch == ChannelSMS {
		n.SMSSentAt = &now
	} else {
		n.EmailSentAt = &now
	}
}

// Send queues the notification in its own transaction and dispatches it.
// Used for standalone sends; domain operations with their own transaction
// call Queue and Dispatch directly.
func (r *Router) Send(ctx context.Context, rec Recipient, n *Notification) (*Notification, error) {
	n.UserID = rec.UserID
	if err := r.Queue(ctx, r.db, n); err != nil {
		return nil, err
	}
	r.Dispatch(ctx, rec, n)
	return n, nil
}

// Broadcast sends a notification to every active user.
func (r *Router) Broadcast(ctx context.Context, title, message string, priority Priority) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(phone, '')
		FROM users
		WHERE status = 'ACTIVE'
	`)
	if err != nil {
		return 0, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.UserID, &rec.Email, &rec.Phone); err != nil {
			return 0, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate recipients: %w", err)
	}

	count := 0
	for _, rec := range recipients {
		n := &Notification{
			UserID:   rec.UserID,
			Title:    title,
			Message:  message,
			Type:     TypeGeneral,
			Priority: priority,
		}
		if _, err := r.Send(ctx, rec, n); err != nil {
			log.Printf("notify: broadcast to %s failed: %v", rec.UserID, err)
			continue
		}
		count++
	}
	return count, nil
}

const notificationColumns = `
	id, user_id, title, message, type, priority, is_read,
	email_sent_at, sms_sent_at,
	COALESCE(related_entity_type, ''), COALESCE(related_entity_id, ''), created_at`

// Unread returns the user's unread notifications, newest first.
func (r *Router) Unread(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error) {
	return r.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

// History returns the user's notifications regardless of read state.
func (r *Router) History(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error) {
	return r.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

// MarkRead marks a notification as read. Ownership fails closed: a
// mismatched user id always rejects.
func (r *Router) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) (*Notification, error) {
	n, err := r.get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, liberr.Unauthorized("cannot access other users' notifications")
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	return n, nil
}

// MarkManyRead marks the given notifications as read, restricted to the
// owner so a crafted id list cannot touch other users' rows.
func (r *Router) MarkManyRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE user_id = $1 AND id = ANY($2)
	`, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// ClearRead deletes the user's read notifications.
func (r *Router) ClearRead(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE user_id = $1 AND is_read = TRUE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear read notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// ClearOld deletes read notifications older than the retention window.
// Invoked by the periodic sweep.
func (r *Router) ClearOld(ctx context.Context) (int, error) {
	threshold := time.Now().UTC().Add(-r.policies.NotificationRetention)
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE is_read = TRUE AND created_at < $1
	`, threshold)
	if err != nil {
		return 0, fmt.Errorf("clear old notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *Router) get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1
	`, id)
	n, err := scanNotification(row)
	if err != nil {
		if storage.MapError(err) == liberr.ErrNotFound {
			return nil, liberr.NotFound("notification %s", id)
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (r *Router) list(ctx context.Context, query string, args ...any) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	n := &Notification{}
	var emailSentAt, smsSentAt sql.NullTime
	err := row.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.IsRead,
		&emailSentAt, &smsSentAt,
		&n.RelatedEntityType, &n.RelatedEntityID, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if emailSentAt.Valid {
		n.EmailSentAt = &emailSentAt.Time
	}
	if smsSentAt.Valid {
		n.SMSSentAt = &smsSentAt.Time
	}
	return n, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
