package notification

import (
	"context"
	"strings"

	"taskboard/internal/model"
	"taskboard/internal/realtime"

	"github.com/google/uuid"
)

// Store persists notification records.
type Store interface {
	Create(ctx context.Context, notification *model.Notification) error
}

// Assignment describes a task being assigned to a user.
type Assignment struct {
	AssigneeID   uuid.UUID
	TaskID       uuid.UUID
	TaskTitle    string
	BoardID      uuid.UUID
	BoardName    string
	FromUserID   uuid.UUID
	FromUserName string
}

// Router creates per-user notification records and publishes them to the
// assignee's personal room, independent of board-room membership.
type Router struct {
	store     Store
	publisher realtime.Publisher
}

func NewRouter(store Store, publisher realtime.Publisher) *Router {
	return &Router{store: store, publisher: publisher}
}

// NotifyAssignment persists and publishes a task_assigned notification.
// Self-assignments and incomplete assignments are silently skipped.
func (r *Router) NotifyAssignment(ctx context.Context, a Assignment) error {
	if a.AssigneeID == uuid.Nil || a.TaskID == uuid.Nil || a.BoardID == uuid.Nil ||
		a.FromUserID == uuid.Nil || a.FromUserName == "" {
		return nil
	}
	if a.AssigneeID == a.FromUserID {
		return nil
	}

	title := strings.TrimSpace(a.TaskTitle)
	if title == "" {
		title = "Untitled task"
	}
	fromName := strings.TrimSpace(a.FromUserName)

	notification := &model.Notification{
		UserID:       a.AssigneeID,
		Type:         model.NotificationTaskAssigned,
		TaskID:       a.TaskID,
		BoardID:      a.BoardID,
		TaskTitle:    title,
		FromUserID:   a.FromUserID,
		FromUserName: fromName,
		Read:         false,
	}
	if err := r.store.Create(ctx, notification); err != nil {
		return err
	}

	r.publisher.Publish(realtime.UserRoom(a.AssigneeID), realtime.Event{
		Kind: realtime.TaskAssigned,
		Assignment: &realtime.AssignmentPayload{
			Type:         model.NotificationTaskAssigned,
			TaskID:       a.TaskID.String(),
			TaskTitle:    title,
			BoardID:      a.BoardID.String(),
			BoardName:    a.BoardName,
			FromUserID:   a.FromUserID.String(),
			FromUserName: fromName,
		},
	})
	return nil
}
