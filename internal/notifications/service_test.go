package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	rows []models.Notification
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	notification.CreatedAt = time.Now().UTC()
	s.rows = append(s.rows, *notification)
	return nil
}

func (s *stubNotificationsRepo) List(ctx context.Context, params listQuery) ([]models.Notification, *pagination.Cursor, error) {
	var out []models.Notification
	for _, row := range s.rows {
		if row.UserID != params.UserID {
			continue
		}
		if params.UnreadOnly && row.ReadAt != nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil, nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	for i := range s.rows {
		if s.rows[i].ID != notificationID || s.rows[i].UserID != userID {
			continue
		}
		if s.rows[i].ReadAt != nil {
			return markResult{Found: true}, nil
		}
		ts := now
		s.rows[i].ReadAt = &ts
		return markResult{Updated: true, Found: true}, nil
	}
	return markResult{}, nil
}

func (s *stubNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	for i := range s.rows {
		if s.rows[i].UserID == userID && s.rows[i].ReadAt == nil {
			ts := now
			s.rows[i].ReadAt = &ts
			n++
		}
	}
	return n, nil
}

func seedNotification(t *testing.T, repo *stubNotificationsRepo, userID uuid.UUID) models.Notification {
	t.Helper()
	notification := &models.Notification{
		UserID:  userID,
		OrderID: uuid.New(),
		Type:    enums.NotificationTypeOrderAccepted,
		Title:   "Order accepted",
		Message: "Your order was accepted.",
	}
	if err := repo.Create(context.Background(), notification); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return *notification
}

func TestListScopedToUser(t *testing.T) {
	repo := &stubNotificationsRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	userID := uuid.New()
	seedNotification(t, repo, userID)
	seedNotification(t, repo, uuid.New())

	result, err := svc.List(context.Background(), ListParams{UserID: userID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one notification, got %d", len(result.Items))
	}
}

func TestMarkReadOnlyOnce(t *testing.T) {
	repo := &stubNotificationsRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	userID := uuid.New()
	row := seedNotification(t, repo, userID)

	if err := svc.MarkRead(context.Background(), userID, row.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// already read rows are still found, not an error
	if err := svc.MarkRead(context.Background(), userID, row.ID); err != nil {
		t.Fatalf("repeat MarkRead: %v", err)
	}

	err = svc.MarkRead(context.Background(), userID, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := &stubNotificationsRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	userID := uuid.New()
	seedNotification(t, repo, userID)
	seedNotification(t, repo, userID)

	count, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows updated, got %d", count)
	}

	unread, err := svc.List(context.Background(), ListParams{UserID: userID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("List unread: %v", err)
	}
	if len(unread.Items) != 0 {
		t.Fatalf("expected no unread rows, got %d", len(unread.Items))
	}
}
