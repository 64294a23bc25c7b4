package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
)

// socketClient is the state of one socket connection: a signed-in session
// whose live message query pushes snapshots to the client.
type socketClient struct {
	userID  string
	session *stores.Session
}

func clientOf(s socketio.Conn) *socketClient {
	c, _ := s.Context().(*socketClient)
	return c
}

type sendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

func checkOrigin(cfg *config.Config) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if !cfg.IsProduction() {
			return true
		}
		return r.Header.Get("Origin") == cfg.FrontendURL
	}
}

// InitSocketServer builds the real-time message channel. Each connection
// authenticates with ?token= and gets its own session.
func InitSocketServer(cfg *config.Config, deps stores.Deps, revoked middleware.RevocationChecker) *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{CheckOrigin: checkOrigin(cfg)},
			&polling.Transport{CheckOrigin: checkOrigin(cfg)},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(nil)
		u := s.URL()
		token := u.Query().Get("token")
		if token == "" {
			logger.Warn().Str("socket_id", s.ID()).Msg("Socket connection rejected: no token")
			return fmt.Errorf("authentication required")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			logger.Warn().Str("socket_id", s.ID()).Msg("Socket connection rejected: invalid token")
			return fmt.Errorf("invalid token")
		}
		if revoked != nil && revoked.IsRevoked(context.Background(), claims.GetJTI()) {
			return fmt.Errorf("token revoked")
		}

		d := deps
		d.Notifier = stores.NotifierFunc(func(t stores.Toast) { s.Emit("toast", t) })
		session := stores.NewSession(context.Background(), d)
		session.Auth.Restore(context.Background(), token, claims)
		session.Messages.OnMessages(func(conversationID string, msgs []models.Message) {
			s.Emit("messages", gin.H{"conversationId": conversationID, "messages": msgs})
		})

		s.SetContext(&socketClient{userID: claims.UserID, session: session})
		logger.Info().Str("socket_id", s.ID()).Str("user_id", claims.UserID).Msg("Socket authenticated")
		return nil
	})

	server.OnEvent("/", "join_conversation", func(s socketio.Conn, conversationID string) {
		client := clientOf(s)
		if client == nil {
			return
		}
		ctx := context.Background()
		conv, err := client.session.Messages.SelectConversation(ctx, conversationID)
		if err != nil {
			s.Emit("error", gin.H{"error": storeError(err).Message})
			return
		}
		if !conv.HasParticipant(client.userID) {
			s.Emit("error", gin.H{"error": "Not a participant in this conversation"})
			return
		}
		client.session.Messages.FetchMessages(conversationID)
	})

	server.OnEvent("/", "leave_conversation", func(s socketio.Conn, _ string) {
		if client := clientOf(s); client != nil {
			client.session.Messages.Cleanup()
		}
	})

	server.OnEvent("/", "send_message", func(s socketio.Conn, payload sendMessagePayload) {
		client := clientOf(s)
		if client == nil {
			return
		}
		content, err := SanitizeMessageContent(payload.Content)
		if err != nil {
			s.Emit("error", gin.H{"error": err.Error()})
			return
		}
		if !middleware.MessageLimiter.Allow("user:" + client.userID) {
			s.Emit("error", gin.H{"error": "Too many requests"})
			return
		}

		ctx := context.Background()
		conv, err := client.session.Messages.SelectConversation(ctx, payload.ConversationID)
		if err != nil || !conv.HasParticipant(client.userID) {
			s.Emit("error", gin.H{"error": "Not a participant in this conversation"})
			return
		}
		// Failures reach the client as a toast.
		_, _ = client.session.Messages.SendMessage(ctx, conv.ID, client.userID, conv.Counterpart(client.userID), content)
	})

	server.OnEvent("/", "mark_read", func(s socketio.Conn, conversationID string) {
		client := clientOf(s)
		if client == nil {
			return
		}
		ctx := context.Background()
		conv, err := client.session.Messages.SelectConversation(ctx, conversationID)
		if err != nil || !conv.HasParticipant(client.userID) {
			return
		}
		if err := client.session.Messages.MarkMessagesAsRead(ctx, conv.ID, client.userID); err != nil {
			logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("Failed to mark messages read")
		}
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if client := clientOf(s); client != nil {
			client.session.Close()
			logger.Debug().Str("user_id", client.userID).Str("reason", reason).Msg("Socket closed")
		}
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Warn().Err(e).Msg("Socket error")
	})

	go func() {
		if err := server.Serve(); err != nil {
			logger.Error().Err(err).Msg("Socket server stopped")
		}
	}()
	return server
}

// SocketHandler mounts the socket server on gin.
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
