// Package syncstore is the client-side cache of the currently open board.
// Broadcast events are applied idempotently against optimistic local
// mutations: the acting client's own echo must not duplicate state.
package syncstore

import (
	"sync"

	"taskboard/internal/realtime"
)

type Store struct {
	mu            sync.RWMutex
	lists         map[string]struct{}
	tasks         []realtime.TaskPayload
	notifications []realtime.AssignmentPayload
}

func New() *Store {
	return &Store{
		lists: make(map[string]struct{}),
	}
}

// LoadBoard replaces the cache with a freshly fetched board view.
func (s *Store) LoadBoard(listIDs []string, tasks []realtime.TaskPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = make(map[string]struct{}, len(listIDs))
	for _, id := range listIDs {
		s.lists[id] = struct{}{}
	}
	s.tasks = append([]realtime.TaskPayload(nil), tasks...)
}

// Clear drops the board view, keeping accumulated notifications.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = make(map[string]struct{})
	s.tasks = nil
}

// AddTask is the optimistic local insert used when this client creates a task.
func (s *Store) AddTask(task realtime.TaskPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(task)
}

// ReplaceTask is the optimistic local update/move.
func (s *Store) ReplaceTask(task realtime.TaskPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(task)
}

// RemoveTask is the optimistic local delete.
func (s *Store) RemoveTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(taskID)
}

// Apply folds one broadcast event into the cache. Applying the same event
// twice is a no-op the second time.
func (s *Store) Apply(event realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Kind {
	case realtime.TaskCreated:
		if event.Board == nil || event.Board.Task == nil {
			return
		}
		task := *event.Board.Task
		// Игнорируем задачи чужих списков и уже примененные вставки
		if _, loaded := s.lists[task.ListID]; !loaded {
			return
		}
		if s.index(task.ID) >= 0 {
			return
		}
		s.tasks = append(s.tasks, task)

	case realtime.TaskUpdated, realtime.TaskMoved:
		if event.Board == nil || event.Board.Task == nil {
			return
		}
		task := *event.Board.Task
		if _, loaded := s.lists[task.ListID]; !loaded {
			return
		}
		s.replace(task)

	case realtime.TaskDeleted:
		if event.Board == nil || event.Board.Task == nil {
			return
		}
		s.remove(event.Board.Task.ID)

	case realtime.TaskAssigned:
		if event.Assignment == nil {
			return
		}
		s.notifications = append(s.notifications, *event.Assignment)
	}
}

// Tasks returns a copy of the cached tasks.
func (s *Store) Tasks() []realtime.TaskPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]realtime.TaskPayload(nil), s.tasks...)
}

// Notifications returns a copy of the accumulated assignment notifications.
func (s *Store) Notifications() []realtime.AssignmentPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]realtime.AssignmentPayload(nil), s.notifications...)
}

func (s *Store) index(taskID string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func (s *Store) upsert(task realtime.TaskPayload) {
	if i := s.index(task.ID); i >= 0 {
		s.tasks[i] = task
		return
	}
	s.tasks = append(s.tasks, task)
}

func (s *Store) replace(task realtime.TaskPayload) {
	if i := s.index(task.ID); i >= 0 {
		s.tasks[i] = task
	}
}

func (s *Store) remove(taskID string) {
	if i := s.index(taskID); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
}
