package access

import (
	"context"
	"net/http"

	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/google/uuid"
)

// Denial describes why access was refused. It is returned as a value so
// callers can map it to a response without inspecting errors.
type Denial struct {
	Status  int
	Message string
}

// Resolver decides whether a user may touch a board-scoped resource.
// It reads the current persisted state on every call: membership can be
// revoked mid-session, so results are never cached.
type Resolver struct {
	boards  repository.BoardRepositoryInterface
	members repository.BoardMemberRepositoryInterface
	lists   repository.ListRepositoryInterface
}

func NewResolver(
	boards repository.BoardRepositoryInterface,
	members repository.BoardMemberRepositoryInterface,
	lists repository.ListRepositoryInterface,
) *Resolver {
	return &Resolver{
		boards:  boards,
		members: members,
		lists:   lists,
	}
}

// ResolveBoard grants access when the user owns the board or holds a
// membership row. A nil Denial means access is granted. The error return is
// reserved for infrastructure failures.
func (r *Resolver) ResolveBoard(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, *Denial, error) {
	board, err := r.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	if board == nil {
		return nil, &Denial{Status: http.StatusNotFound, Message: "Board not found"}, nil
	}

	if board.OwnerID == userID {
		return board, nil, nil
	}

	isMember, err := r.members.Exists(ctx, boardID, userID)
	if err != nil {
		return nil, nil, err
	}
	if isMember {
		return board, nil, nil
	}

	return nil, &Denial{Status: http.StatusForbidden, Message: "Access denied to this board"}, nil
}

// ResolveList resolves the list first, then defers to board resolution using
// the list's board. Task endpoints reuse this indirection via the task's list.
func (r *Resolver) ResolveList(ctx context.Context, userID, listID uuid.UUID) (*model.List, *model.Board, *Denial, error) {
	list, err := r.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, nil, nil, err
	}
	if list == nil {
		return nil, nil, &Denial{Status: http.StatusNotFound, Message: "List not found"}, nil
	}

	board, denial, err := r.ResolveBoard(ctx, userID, list.BoardID)
	if err != nil || denial != nil {
		return nil, nil, denial, err
	}
	return list, board, nil, nil
}
