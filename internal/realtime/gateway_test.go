package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"taskboard/internal/access"
	"taskboard/internal/auth"
	"taskboard/internal/model"
	"taskboard/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

type MockBoardAccess struct {
	mock.Mock
}

func (m *MockBoardAccess) ResolveBoard(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, *access.Denial, error) {
	args := m.Called(ctx, userID, boardID)
	var board *model.Board
	if b := args.Get(0); b != nil {
		board = b.(*model.Board)
	}
	var denial *access.Denial
	if d := args.Get(1); d != nil {
		denial = d.(*access.Denial)
	}
	return board, denial, args.Error(2)
}

type testEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type testAck struct {
	OK      bool   `json:"ok"`
	Room    string `json:"room"`
	Message string `json:"message"`
}

func setupGateway(t *testing.T) (*realtime.Gateway, *MockUserStore, *MockBoardAccess, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret")

	users := new(MockUserStore)
	boards := new(MockBoardAccess)
	gateway := realtime.NewGateway(users, boards)

	r := gin.New()
	r.GET("/ws", gateway.Handler())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(gateway.Shutdown)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return gateway, users, boards, wsURL
}

// dialAs подключает аутентифицированного пользователя через query-параметр token
func dialAs(t *testing.T, users *MockUserStore, wsURL string, user *model.User) *websocket.Conn {
	t.Helper()
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	token, err := auth.GenerateToken(user.ID.String())
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) testEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env testEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func joinBoard(t *testing.T, conn *websocket.Conn, boardID string) testAck {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{
		"action":  "join_board",
		"boardId": boardID,
	}))
	env := readEnvelope(t, conn)
	require.Equal(t, "join_board", env.Event)
	var ack testAck
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	return ack
}

func TestHandshake_MissingToken(t *testing.T) {
	// Arrange
	_, _, _, wsURL := setupGateway(t)

	// Act
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Authentication required", body["error"])
}

func TestHandshake_MalformedToken(t *testing.T) {
	// Arrange
	_, _, _, wsURL := setupGateway(t)

	// Act
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=garbage", nil)

	// Assert
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestHandshake_NonUUIDSubject(t *testing.T) {
	// Arrange: токен валиден, но user_id не является UUID
	_, _, _, wsURL := setupGateway(t)

	token, err := auth.GenerateToken("not-a-uuid")
	require.NoError(t, err)

	// Act
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)

	// Assert
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid token", body["error"])
}

func TestHandshake_UnknownUser(t *testing.T) {
	// Arrange
	_, users, _, wsURL := setupGateway(t)

	userID := uuid.New()
	users.On("GetByID", mock.Anything, userID).Return(nil, nil)

	token, err := auth.GenerateToken(userID.String())
	require.NoError(t, err)

	// Act
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)

	// Assert
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "User not found", body["error"])
}

func TestHandshake_AuthorizationHeader(t *testing.T) {
	// Arrange
	_, users, _, wsURL := setupGateway(t)

	user := &model.User{ID: uuid.New(), Name: "Alice"}
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	token, err := auth.GenerateToken(user.ID.String())
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	// Act
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)

	// Assert
	require.NoError(t, err)
	conn.Close()
}

func TestJoinBoard_Granted(t *testing.T) {
	// Arrange
	_, users, boards, wsURL := setupGateway(t)

	user := &model.User{ID: uuid.New(), Name: "Alice"}
	board := &model.Board{ID: uuid.New(), Name: "Project", OwnerID: user.ID}
	boards.On("ResolveBoard", mock.Anything, user.ID, board.ID).Return(board, nil, nil)

	conn := dialAs(t, users, wsURL, user)

	// Act
	ack := joinBoard(t, conn, board.ID.String())

	// Assert
	assert.True(t, ack.OK)
	assert.Equal(t, "board:"+board.ID.String(), ack.Room)
}

func TestJoinBoard_Denied(t *testing.T) {
	// Arrange
	_, users, boards, wsURL := setupGateway(t)

	user := &model.User{ID: uuid.New(), Name: "Mallory"}
	boardID := uuid.New()
	denial := &access.Denial{Status: http.StatusForbidden, Message: "Access denied to this board"}
	boards.On("ResolveBoard", mock.Anything, user.ID, boardID).Return(nil, denial, nil)

	conn := dialAs(t, users, wsURL, user)

	// Act
	ack := joinBoard(t, conn, boardID.String())

	// Assert
	assert.False(t, ack.OK)
	assert.Empty(t, ack.Room)
	assert.Equal(t, "Access denied to this board", ack.Message)
}

func TestJoinBoard_MissingBoardID(t *testing.T) {
	// Arrange
	_, users, _, wsURL := setupGateway(t)

	user := &model.User{ID: uuid.New(), Name: "Alice"}
	conn := dialAs(t, users, wsURL, user)

	// Act
	ack := joinBoard(t, conn, "")

	// Assert
	assert.False(t, ack.OK)
	assert.Equal(t, "Board ID is required", ack.Message)
}

func TestPublish_BoardRoomFanOut(t *testing.T) {
	// Arrange
	gateway, users, boards, wsURL := setupGateway(t)

	board := &model.Board{ID: uuid.New(), Name: "Project"}
	alice := &model.User{ID: uuid.New(), Name: "Alice"}
	bob := &model.User{ID: uuid.New(), Name: "Bob"}
	boards.On("ResolveBoard", mock.Anything, mock.Anything, board.ID).Return(board, nil, nil)

	aliceConn := dialAs(t, users, wsURL, alice)
	bobConn := dialAs(t, users, wsURL, bob)
	require.True(t, joinBoard(t, aliceConn, board.ID.String()).OK)
	require.True(t, joinBoard(t, bobConn, board.ID.String()).OK)

	// Act
	gateway.Publish(realtime.BoardRoom(board.ID), realtime.Event{
		Kind: realtime.TaskCreated,
		Board: &realtime.BoardEventPayload{
			Action:   "task_created",
			UserID:   alice.ID.String(),
			UserName: "Alice",
			Task:     &realtime.TaskPayload{ID: uuid.New().String(), Title: "Deploy"},
		},
	})

	// Assert: оба участника получают событие
	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "task:created", env.Event)

		var payload realtime.BoardEventPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Equal(t, "task_created", payload.Action)
		assert.Equal(t, "Deploy", payload.Task.Title)
	}
}

func TestPublish_NonSubscriberExcluded(t *testing.T) {
	// Arrange
	gateway, users, boards, wsURL := setupGateway(t)

	board := &model.Board{ID: uuid.New(), Name: "Project"}
	alice := &model.User{ID: uuid.New(), Name: "Alice"}
	eve := &model.User{ID: uuid.New(), Name: "Eve"}
	boards.On("ResolveBoard", mock.Anything, alice.ID, board.ID).Return(board, nil, nil)

	aliceConn := dialAs(t, users, wsURL, alice)
	eveConn := dialAs(t, users, wsURL, eve)
	require.True(t, joinBoard(t, aliceConn, board.ID.String()).OK)

	// Act
	gateway.Publish(realtime.BoardRoom(board.ID), realtime.Event{
		Kind:  realtime.TaskUpdated,
		Board: &realtime.BoardEventPayload{Action: "task_updated", Task: &realtime.TaskPayload{ID: "t1"}},
	})

	// Assert
	env := readEnvelope(t, aliceConn)
	assert.Equal(t, "task:updated", env.Event)

	eveConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray testEnvelope
	assert.Error(t, eveConn.ReadJSON(&stray))
}

func TestPublish_PersonalRoom(t *testing.T) {
	// Arrange: личная комната присоединяется автоматически при подключении
	gateway, users, _, wsURL := setupGateway(t)

	user := &model.User{ID: uuid.New(), Name: "Alice"}
	conn := dialAs(t, users, wsURL, user)

	// Даем соединению зарегистрироваться
	time.Sleep(50 * time.Millisecond)

	// Act
	gateway.Publish(realtime.UserRoom(user.ID), realtime.Event{
		Kind: realtime.TaskAssigned,
		Assignment: &realtime.AssignmentPayload{
			Type:      "task_assigned",
			TaskID:    uuid.New().String(),
			TaskTitle: "Deploy",
		},
	})

	// Assert
	env := readEnvelope(t, conn)
	assert.Equal(t, "task_assigned", env.Event)

	var payload realtime.AssignmentPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "Deploy", payload.TaskTitle)
}

func TestLeaveBoard_StopsDelivery(t *testing.T) {
	// Arrange
	gateway, users, boards, wsURL := setupGateway(t)

	board := &model.Board{ID: uuid.New(), Name: "Project"}
	user := &model.User{ID: uuid.New(), Name: "Alice"}
	boards.On("ResolveBoard", mock.Anything, user.ID, board.ID).Return(board, nil, nil)

	conn := dialAs(t, users, wsURL, user)
	require.True(t, joinBoard(t, conn, board.ID.String()).OK)

	// Act
	require.NoError(t, conn.WriteJSON(map[string]string{
		"action":  "leave_board",
		"boardId": board.ID.String(),
	}))
	time.Sleep(50 * time.Millisecond)

	gateway.Publish(realtime.BoardRoom(board.ID), realtime.Event{
		Kind:  realtime.TaskCreated,
		Board: &realtime.BoardEventPayload{Action: "task_created", Task: &realtime.TaskPayload{ID: "t1"}},
	})

	// Assert
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray testEnvelope
	assert.Error(t, conn.ReadJSON(&stray))
}

// Повторный join не дублирует доставку событий
func TestJoinBoard_Idempotent(t *testing.T) {
	// Arrange
	gateway, users, boards, wsURL := setupGateway(t)

	board := &model.Board{ID: uuid.New(), Name: "Project"}
	user := &model.User{ID: uuid.New(), Name: "Alice"}
	boards.On("ResolveBoard", mock.Anything, user.ID, board.ID).Return(board, nil, nil)

	conn := dialAs(t, users, wsURL, user)
	require.True(t, joinBoard(t, conn, board.ID.String()).OK)
	require.True(t, joinBoard(t, conn, board.ID.String()).OK)

	// Act
	gateway.Publish(realtime.BoardRoom(board.ID), realtime.Event{
		Kind:  realtime.TaskCreated,
		Board: &realtime.BoardEventPayload{Action: "task_created", Task: &realtime.TaskPayload{ID: "t1"}},
	})

	// Assert: ровно одна доставка
	env := readEnvelope(t, conn)
	assert.Equal(t, "task:created", env.Event)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray testEnvelope
	assert.Error(t, conn.ReadJSON(&stray))
}

func TestPublish_OrderPreservedPerRoom(t *testing.T) {
	// Arrange
	gateway, users, boards, wsURL := setupGateway(t)

	board := &model.Board{ID: uuid.New(), Name: "Project"}
	user := &model.User{ID: uuid.New(), Name: "Alice"}
	boards.On("ResolveBoard", mock.Anything, user.ID, board.ID).Return(board, nil, nil)

	conn := dialAs(t, users, wsURL, user)
	require.True(t, joinBoard(t, conn, board.ID.String()).OK)

	// Act
	for i := 0; i < 10; i++ {
		gateway.Publish(realtime.BoardRoom(board.ID), realtime.Event{
			Kind: realtime.TaskUpdated,
			Board: &realtime.BoardEventPayload{
				Action: "task_updated",
				Task:   &realtime.TaskPayload{ID: "t1", Order: i},
			},
		})
	}

	// Assert: события приходят в порядке публикации
	for i := 0; i < 10; i++ {
		env := readEnvelope(t, conn)
		var payload realtime.BoardEventPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Equal(t, i, payload.Task.Order)
	}
}
