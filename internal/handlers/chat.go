package handlers

import (
	"net/http"

	"github.com/chamsedd0/neighbor/internal/models"
	apperrors "github.com/chamsedd0/neighbor/pkg/errors"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/gin-gonic/gin"
)

func GetConversations(c *gin.Context) {
	s := session(c)
	if err := s.Messages.FetchConversations(c.Request.Context(), s.Auth.CurrentUserID()); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"conversations": list(s.Messages.State().Conversations)})
}

type createConversationInput struct {
	ParticipantID string `json:"participantId" binding:"required"`
	PropertyID    string `json:"propertyId"`
}

// CreateConversation returns the caller's conversation with participantId,
// opening one if needed.
func CreateConversation(c *gin.Context) {
	var input createConversationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := session(c)
	ctx := c.Request.Context()
	if _, err := s.Auth.Lookup(ctx, input.ParticipantID); err != nil {
		fail(c, err)
		return
	}
	id, err := s.Messages.CreateConversation(ctx, []string{s.Auth.CurrentUserID(), input.ParticipantID}, input.PropertyID)
	if err != nil {
		fail(c, err)
		return
	}
	conv, err := s.Messages.SelectConversation(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"conversation": conv})
}

// loadConversation resolves :id and checks the caller takes part in it.
func loadConversation(c *gin.Context) (models.Conversation, bool) {
	s := session(c)
	conv, err := s.Messages.SelectConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return conv, false
	}
	if !conv.HasParticipant(s.Auth.CurrentUserID()) {
		fail(c, apperrors.Forbidden("Not a participant in this conversation"))
		return conv, false
	}
	return conv, true
}

func GetMessages(c *gin.Context) {
	conv, ok := loadConversation(c)
	if !ok {
		return
	}
	msgs, err := session(c).Messages.LoadMessages(c.Request.Context(), conv.ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"messages": list(msgs)})
}

type sendMessageInput struct {
	Content string `json:"content" binding:"required"`
}

func SendMessage(c *gin.Context) {
	var input sendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Message content is required")
		return
	}
	content, err := SanitizeMessageContent(input.Content)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	conv, ok := loadConversation(c)
	if !ok {
		return
	}

	s := session(c)
	uid := s.Auth.CurrentUserID()
	msg, err := s.Messages.SendMessage(c.Request.Context(), conv.ID, uid, conv.Counterpart(uid), content)
	if err != nil {
		logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("Failed to send message")
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": msg})
}

func MarkConversationRead(c *gin.Context) {
	conv, ok := loadConversation(c)
	if !ok {
		return
	}
	if err := session(c).Messages.MarkMessagesAsRead(c.Request.Context(), conv.ID, session(c).Auth.CurrentUserID()); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Conversation marked as read"})
}
