package activity

import (
	"context"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/realtime"

	"github.com/google/uuid"
)

// Board mutation actions recorded to the activity log
const (
	ActionTaskCreated = "task_created"
	ActionTaskUpdated = "task_updated"
	ActionTaskDeleted = "task_deleted"
	ActionTaskMoved   = "task_moved"
)

// actionEvents maps log actions to broadcast events. Actions outside the map
// are persisted but not broadcast.
var actionEvents = map[string]realtime.Kind{
	ActionTaskCreated: realtime.TaskCreated,
	ActionTaskUpdated: realtime.TaskUpdated,
	ActionTaskDeleted: realtime.TaskDeleted,
	ActionTaskMoved:   realtime.TaskMoved,
}

// LogStore persists activity entries.
type LogStore interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
}

// Record is the fully-formed context of one board mutation.
type Record struct {
	BoardID    uuid.UUID
	UserID     uuid.UUID
	UserName   string
	Action     string
	Task       *realtime.TaskPayload
	ListID     string
	FromListID string
}

// Recorder appends immutable activity entries and broadcasts the implied
// event to the board room. The log is authoritative history; the broadcast
// is best-effort.
type Recorder struct {
	logs      LogStore
	publisher realtime.Publisher
}

func NewRecorder(logs LogStore, publisher realtime.Publisher) *Recorder {
	return &Recorder{logs: logs, publisher: publisher}
}

// Record persists the entry with a server-assigned timestamp, then publishes.
// Incomplete records are dropped: callers must supply board, user and action.
func (r *Recorder) Record(ctx context.Context, rec Record) error {
	if rec.BoardID == uuid.Nil || rec.UserID == uuid.Nil || rec.Action == "" {
		return nil
	}

	timestamp := time.Now().UTC()
	entry := &model.ActivityLog{
		BoardID:   rec.BoardID,
		UserID:    rec.UserID,
		Action:    rec.Action,
		Timestamp: timestamp,
	}
	if err := r.logs.Create(ctx, entry); err != nil {
		return err
	}

	kind, ok := actionEvents[rec.Action]
	if !ok {
		return nil
	}

	r.publisher.Publish(realtime.BoardRoom(rec.BoardID), realtime.Event{
		Kind: kind,
		Board: &realtime.BoardEventPayload{
			Action:     rec.Action,
			UserID:     rec.UserID.String(),
			UserName:   rec.UserName,
			Timestamp:  timestamp.Format(time.RFC3339),
			Task:       rec.Task,
			ListID:     rec.ListID,
			FromListID: rec.FromListID,
		},
	})
	return nil
}
