package access_test

import (
	"context"
	"net/http"
	"testing"

	"taskboard/internal/access"
	"taskboard/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Мок репозитория досок
type MockBoardRepository struct {
	mock.Mock
}

func (m *MockBoardRepository) Create(ctx context.Context, board *model.Board) error {
	args := m.Called(ctx, board)
	return args.Error(0)
}

func (m *MockBoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	args := m.Called(ctx, id)
	board := args.Get(0)
	if board == nil {
		return nil, args.Error(1)
	}
	return board.(*model.Board), args.Error(1)
}

func (m *MockBoardRepository) GetVisible(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	args := m.Called(ctx, userID)
	boards := args.Get(0)
	if boards == nil {
		return nil, args.Error(1)
	}
	return boards.([]model.Board), args.Error(1)
}

// Мок репозитория участников досок
type MockBoardMemberRepository struct {
	mock.Mock
}

func (m *MockBoardMemberRepository) Add(ctx context.Context, boardID, userID uuid.UUID) error {
	args := m.Called(ctx, boardID, userID)
	return args.Error(0)
}

func (m *MockBoardMemberRepository) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	args := m.Called(ctx, boardID, userID)
	return args.Error(0)
}

func (m *MockBoardMemberRepository) Exists(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, boardID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBoardMemberRepository) GetByBoard(ctx context.Context, boardID uuid.UUID) ([]model.BoardMember, error) {
	args := m.Called(ctx, boardID)
	members := args.Get(0)
	if members == nil {
		return nil, args.Error(1)
	}
	return members.([]model.BoardMember), args.Error(1)
}

// Мок репозитория списков
type MockListRepository struct {
	mock.Mock
}

func (m *MockListRepository) Create(ctx context.Context, list *model.List) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *MockListRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.List, error) {
	args := m.Called(ctx, id)
	list := args.Get(0)
	if list == nil {
		return nil, args.Error(1)
	}
	return list.(*model.List), args.Error(1)
}

func (m *MockListRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.List, error) {
	args := m.Called(ctx, boardID)
	lists := args.Get(0)
	if lists == nil {
		return nil, args.Error(1)
	}
	return lists.([]model.List), args.Error(1)
}

func (m *MockListRepository) MaxOrder(ctx context.Context, boardID uuid.UUID) (int, bool, error) {
	args := m.Called(ctx, boardID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func setupResolver() (*access.Resolver, *MockBoardRepository, *MockBoardMemberRepository, *MockListRepository) {
	boards := new(MockBoardRepository)
	members := new(MockBoardMemberRepository)
	lists := new(MockListRepository)
	return access.NewResolver(boards, members, lists), boards, members, lists
}

func TestResolveBoard_Owner(t *testing.T) {
	// Arrange
	resolver, boards, members, _ := setupResolver()

	userID := uuid.New()
	board := &model.Board{ID: uuid.New(), Name: "Project", OwnerID: userID}
	boards.On("GetByID", mock.Anything, board.ID).Return(board, nil)

	// Act
	got, denial, err := resolver.ResolveBoard(context.Background(), userID, board.ID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, denial)
	assert.Equal(t, board, got)
	// Владелец не требует проверки членства
	members.AssertNotCalled(t, "Exists")
}

func TestResolveBoard_Member(t *testing.T) {
	// Arrange
	resolver, boards, members, _ := setupResolver()

	userID := uuid.New()
	board := &model.Board{ID: uuid.New(), Name: "Project", OwnerID: uuid.New()}
	boards.On("GetByID", mock.Anything, board.ID).Return(board, nil)
	members.On("Exists", mock.Anything, board.ID, userID).Return(true, nil)

	// Act
	got, denial, err := resolver.ResolveBoard(context.Background(), userID, board.ID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, denial)
	assert.Equal(t, board, got)
	members.AssertExpectations(t)
}

func TestResolveBoard_NotFound(t *testing.T) {
	// Arrange
	resolver, boards, members, _ := setupResolver()

	userID := uuid.New()
	boardID := uuid.New()
	boards.On("GetByID", mock.Anything, boardID).Return(nil, nil)

	// Act
	got, denial, err := resolver.ResolveBoard(context.Background(), userID, boardID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NotNil(t, denial)
	assert.Equal(t, http.StatusNotFound, denial.Status)
	assert.Equal(t, "Board not found", denial.Message)
	// Несуществующая доска не раскрывается через проверку членства
	members.AssertNotCalled(t, "Exists")
}

func TestResolveBoard_Forbidden(t *testing.T) {
	// Arrange
	resolver, boards, members, _ := setupResolver()

	userID := uuid.New()
	board := &model.Board{ID: uuid.New(), Name: "Project", OwnerID: uuid.New()}
	boards.On("GetByID", mock.Anything, board.ID).Return(board, nil)
	members.On("Exists", mock.Anything, board.ID, userID).Return(false, nil)

	// Act
	got, denial, err := resolver.ResolveBoard(context.Background(), userID, board.ID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NotNil(t, denial)
	assert.Equal(t, http.StatusForbidden, denial.Status)
	assert.Equal(t, "Access denied to this board", denial.Message)
}

func TestResolveList_Success(t *testing.T) {
	// Arrange
	resolver, boards, _, lists := setupResolver()

	userID := uuid.New()
	board := &model.Board{ID: uuid.New(), Name: "Project", OwnerID: userID}
	list := &model.List{ID: uuid.New(), BoardID: board.ID, Title: "To Do"}
	lists.On("GetByID", mock.Anything, list.ID).Return(list, nil)
	boards.On("GetByID", mock.Anything, board.ID).Return(board, nil)

	// Act
	gotList, gotBoard, denial, err := resolver.ResolveList(context.Background(), userID, list.ID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, denial)
	assert.Equal(t, list, gotList)
	assert.Equal(t, board, gotBoard)
}

func TestResolveList_ListNotFound(t *testing.T) {
	// Arrange
	resolver, boards, _, lists := setupResolver()

	userID := uuid.New()
	listID := uuid.New()
	lists.On("GetByID", mock.Anything, listID).Return(nil, nil)

	// Act
	gotList, gotBoard, denial, err := resolver.ResolveList(context.Background(), userID, listID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, gotList)
	assert.Nil(t, gotBoard)
	assert.NotNil(t, denial)
	assert.Equal(t, http.StatusNotFound, denial.Status)
	assert.Equal(t, "List not found", denial.Message)
	boards.AssertNotCalled(t, "GetByID")
}

func TestResolveList_BoardDenied(t *testing.T) {
	// Arrange
	resolver, boards, members, lists := setupResolver()

	userID := uuid.New()
	board := &model.Board{ID: uuid.New(), Name: "Project", OwnerID: uuid.New()}
	list := &model.List{ID: uuid.New(), BoardID: board.ID, Title: "To Do"}
	lists.On("GetByID", mock.Anything, list.ID).Return(list, nil)
	boards.On("GetByID", mock.Anything, board.ID).Return(board, nil)
	members.On("Exists", mock.Anything, board.ID, userID).Return(false, nil)

	// Act
	gotList, gotBoard, denial, err := resolver.ResolveList(context.Background(), userID, list.ID)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, gotList)
	assert.Nil(t, gotBoard)
	assert.NotNil(t, denial)
	assert.Equal(t, http.StatusForbidden, denial.Status)
}
