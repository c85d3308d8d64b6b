package realtime

import "github.com/google/uuid"

// Kind is the wire name of a server-to-client event.
type Kind string

const (
	TaskCreated  Kind = "task:created"
	TaskUpdated  Kind = "task:updated"
	TaskDeleted  Kind = "task:deleted"
	TaskMoved    Kind = "task:moved"
	TaskAssigned Kind = "task_assigned"
)

// Room key prefixes
const (
	boardRoomPrefix = "board:"
	userRoomPrefix  = "user:"
)

// BoardRoom is the room every collaborator of a board subscribes to.
func BoardRoom(boardID uuid.UUID) string {
	return boardRoomPrefix + boardID.String()
}

// UserRoom is the personal room joined automatically on connect. It is
// private to one principal.
func UserRoom(userID uuid.UUID) string {
	return userRoomPrefix + userID.String()
}

// TaskPayload is the task entity shape carried by board events. Deletion
// events carry only the ID.
type TaskPayload struct {
	ID          string  `json:"id"`
	ListID      string  `json:"listId,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
	Order       int     `json:"order"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// BoardEventPayload is broadcast to a board room for task mutations.
type BoardEventPayload struct {
	Action     string       `json:"action"`
	UserID     string       `json:"userId"`
	UserName   string       `json:"userName"`
	Timestamp  string       `json:"timestamp"`
	Task       *TaskPayload `json:"task"`
	ListID     string       `json:"listId,omitempty"`
	FromListID string       `json:"fromListId,omitempty"`
}

// AssignmentPayload is delivered to the assignee's personal room.
type AssignmentPayload struct {
	Type         string `json:"type"`
	TaskID       string `json:"taskId"`
	TaskTitle    string `json:"taskTitle"`
	BoardID      string `json:"boardId"`
	BoardName    string `json:"boardName"`
	FromUserID   string `json:"fromUserId"`
	FromUserName string `json:"fromUserName"`
}

// Event is a tagged variant over the closed set of broadcast payloads.
// Exactly one payload field is set, matching the Kind.
type Event struct {
	Kind       Kind
	Board      *BoardEventPayload
	Assignment *AssignmentPayload
}

func (e Event) data() interface{} {
	if e.Assignment != nil {
		return e.Assignment
	}
	return e.Board
}

// envelope is the wire frame for server-to-client messages.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// clientMessage is the wire frame for client-to-server requests.
type clientMessage struct {
	Action  string `json:"action"`
	BoardID string `json:"boardId"`
}

// joinAck acknowledges a join_board request.
type joinAck struct {
	OK      bool   `json:"ok"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client-to-server actions
const (
	actionJoinBoard  = "join_board"
	actionLeaveBoard = "leave_board"
)
