package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"

	"taskboard/internal/access"
	"taskboard/internal/auth"
	"taskboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Publisher is the fan-out primitive used by the activity recorder and the
// notification router. Mutation endpoints never publish directly.
type Publisher interface {
	Publish(room string, event Event)
}

// UserStore resolves the authenticated principal on connect.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// BoardAccess re-checks board membership on every join_board request.
type BoardAccess interface {
	ResolveBoard(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, *access.Denial, error)
}

// Handshake rejection messages
const (
	msgAuthRequired   = "Authentication required"
	msgInvalidToken   = "Invalid token"
	msgUserNotFound   = "User not found"
	msgTokenRejected  = "Invalid or expired token"
	msgBoardIDMissing = "Board ID is required"
)

// sendBuffer bounds the per-connection outbound queue. A subscriber that
// cannot drain it is disconnected rather than stalling the room.
const sendBuffer = 64

type connection struct {
	userID   uuid.UUID
	userName string
	sock     *websocket.Conn
	send     chan envelope
	rooms    map[string]struct{} // guarded by Gateway.mu
	closed   bool                // guarded by Gateway.mu
}

// Gateway owns the room-membership registry and every live connection.
// Constructed once at process start and passed explicitly to components
// that publish.
type Gateway struct {
	users    UserStore
	boards   BoardAccess
	upgrader websocket.Upgrader

	mu     sync.Mutex
	rooms  map[string]map[*connection]struct{}
	conns  map[*connection]struct{}
	closed bool
}

var _ Publisher = (*Gateway)(nil)

func NewGateway(users UserStore, boards BoardAccess) *Gateway {
	return &Gateway{
		users:  users,
		boards: boards,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*connection]struct{}),
		conns: make(map[*connection]struct{}),
	}
}

// handshakeToken extracts the bearer credential: the Authorization header
// first, then the token query parameter.
func handshakeToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Handler authenticates and upgrades incoming connections. Authentication
// failures reject the handshake before the upgrade: the connection never
// transitions to authenticated.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handshakeToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgAuthRequired})
			return
		}

		userIDStr, err := auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgTokenRejected})
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgInvalidToken})
			return
		}

		user, err := g.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUserNotFound})
			return
		}

		sock, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response
			return
		}

		conn := &connection{
			userID:   user.ID,
			userName: user.Name,
			sock:     sock,
			send:     make(chan envelope, sendBuffer),
			rooms:    make(map[string]struct{}),
		}

		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			sock.Close()
			return
		}
		g.conns[conn] = struct{}{}
		// Личная комната присоединяется автоматически, без проверки доступа
		g.joinLocked(conn, UserRoom(user.ID))
		g.mu.Unlock()

		go conn.writeLoop()
		g.readLoop(c.Request.Context(), conn)
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *connection) {
	defer g.drop(conn)
	for {
		var msg clientMessage
		if err := conn.sock.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Action {
		case actionJoinBoard:
			g.handleJoin(ctx, conn, msg.BoardID)
		case actionLeaveBoard:
			g.handleLeave(conn, msg.BoardID)
		}
	}
}

func (c *connection) writeLoop() {
	for env := range c.send {
		if err := c.sock.WriteJSON(env); err != nil {
			break
		}
	}
	c.sock.Close()
}

// handleJoin re-verifies board access on every request; membership revoked
// mid-session therefore blocks rejoining.
func (g *Gateway) handleJoin(ctx context.Context, conn *connection, boardID string) {
	ack := func(a joinAck) {
		g.enqueue(conn, envelope{Event: actionJoinBoard, Data: a})
	}

	if boardID == "" {
		ack(joinAck{OK: false, Message: msgBoardIDMissing})
		return
	}

	id, err := uuid.Parse(boardID)
	if err != nil {
		ack(joinAck{OK: false, Message: "Invalid board ID format"})
		return
	}

	_, denial, err := g.boards.ResolveBoard(ctx, conn.userID, id)
	if err != nil {
		ack(joinAck{OK: false, Message: "Failed to check board access"})
		return
	}
	if denial != nil {
		ack(joinAck{OK: false, Message: denial.Message})
		return
	}

	room := BoardRoom(id)
	g.mu.Lock()
	g.joinLocked(conn, room)
	g.mu.Unlock()

	ack(joinAck{OK: true, Room: room})
}

// handleLeave needs no access check; leaving an unjoined room is a no-op.
func (g *Gateway) handleLeave(conn *connection, boardID string) {
	if boardID == "" {
		return
	}
	id, err := uuid.Parse(boardID)
	if err != nil {
		return
	}

	room := BoardRoom(id)
	g.mu.Lock()
	if subs, ok := g.rooms[room]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(g.rooms, room)
		}
	}
	delete(conn.rooms, room)
	g.mu.Unlock()
}

// joinLocked is idempotent for repeated joins from the same connection.
func (g *Gateway) joinLocked(conn *connection, room string) {
	subs, ok := g.rooms[room]
	if !ok {
		subs = make(map[*connection]struct{})
		g.rooms[room] = subs
	}
	subs[conn] = struct{}{}
	conn.rooms[room] = struct{}{}
}

// Publish fans the event out to every subscriber of the room. Events are
// queued under the registry lock so each subscriber observes publishes to a
// room in a single order. Subscribers with a full queue are disconnected.
func (g *Gateway) Publish(room string, event Event) {
	env := envelope{Event: string(event.Kind), Data: event.data()}

	var slow []*connection
	g.mu.Lock()
	for conn := range g.rooms[room] {
		if conn.closed {
			continue
		}
		select {
		case conn.send <- env:
		default:
			slow = append(slow, conn)
		}
	}
	g.mu.Unlock()

	for _, conn := range slow {
		log.Printf("⚠️  Dropping slow connection for user %s", conn.userID)
		g.drop(conn)
	}
}

// enqueue queues a direct message (acks) to one connection.
func (g *Gateway) enqueue(conn *connection, env envelope) {
	g.mu.Lock()
	if conn.closed {
		g.mu.Unlock()
		return
	}
	select {
	case conn.send <- env:
		g.mu.Unlock()
	default:
		g.mu.Unlock()
		g.drop(conn)
	}
}

// drop removes the connection from every room and closes it. Safe to call
// more than once.
func (g *Gateway) drop(conn *connection) {
	g.mu.Lock()
	if conn.closed {
		g.mu.Unlock()
		return
	}
	conn.closed = true
	for room := range conn.rooms {
		if subs, ok := g.rooms[room]; ok {
			delete(subs, conn)
			if len(subs) == 0 {
				delete(g.rooms, room)
			}
		}
	}
	delete(g.conns, conn)
	g.mu.Unlock()

	close(conn.send)
}

// Shutdown closes every live connection. New connections are refused.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	g.closed = true
	conns := make([]*connection, 0, len(g.conns))
	for conn := range g.conns {
		conns = append(conns, conn)
	}
	g.mu.Unlock()

	for _, conn := range conns {
		g.drop(conn)
	}
}
