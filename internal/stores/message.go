package stores

import (
	"context"
	"sync"
	"time"

	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/pkg/utils"
)

// SubscriptionState is the lifecycle of the store's live message query.
type SubscriptionState int

const (
	Unsubscribed SubscriptionState = iota
	Subscribing
	Active
)

func (s SubscriptionState) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	}
	return "unsubscribed"
}

type MessageState struct {
	Conversations        []models.Conversation `json:"conversations"`
	SelectedConversation *models.Conversation  `json:"selectedConversation"`
	Messages             []models.Message      `json:"messages"`
	IsLoading            bool                  `json:"isLoading"`
	Error                string                `json:"error,omitempty"`
	Subscription         SubscriptionState     `json:"-"`
	ConversationID       string                `json:"conversationId,omitempty"`
}

// liveQuery is one registration of the message subscription.
type liveQuery struct {
	sub            *gateway.Subscription
	conversationID string
	// pending is true until the first snapshot lands; guarded by the store mutex.
	pending bool
}

// MessageStore holds conversations and the messages of the open conversation.
// At most one live message query exists per store.
type MessageStore struct {
	storeBase
	gw  gateway.Gateway
	ctx context.Context

	conversations []models.Conversation
	selected      *models.Conversation
	messages      []models.Message
	subState      SubscriptionState

	// subMu serializes subscription changes. It is never held by the
	// delivery callback, so teardown can wait for the callback safely.
	subMu      sync.Mutex
	live       *liveQuery
	onMessages func(conversationID string, msgs []models.Message)

	convGen generation
}

func newMessageStore(ctx context.Context, gw gateway.Gateway, notifier Notifier) *MessageStore {
	s := &MessageStore{gw: gw, ctx: ctx}
	s.setup("messages", notifier)
	return s
}

func (s *MessageStore) State() MessageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := MessageState{
		Conversations: append([]models.Conversation(nil), s.conversations...),
		Messages:      append([]models.Message(nil), s.messages...),
		IsLoading:     s.loading(),
		Error:         s.err,
		Subscription:  s.subState,
	}
	if s.live != nil {
		st.ConversationID = s.live.conversationID
	}
	if s.selected != nil {
		c := *s.selected
		st.SelectedConversation = &c
	}
	return st
}

// OnMessages registers a hook called after every snapshot is applied. The
// hook must not call FetchMessages or Cleanup.
func (s *MessageStore) OnMessages(fn func(conversationID string, msgs []models.Message)) {
	s.mu.Lock()
	s.onMessages = fn
	s.mu.Unlock()
}

// FetchConversations lists the conversations userID takes part in, most
// recently active first.
func (s *MessageStore) FetchConversations(ctx context.Context, userID string) error {
	s.mu.Lock()
	ctx, gen, cancel := s.convGen.next(ctx)
	s.mu.Unlock()
	defer cancel()

	return s.track("fetchConversations", func() error {
		page, err := gateway.List[models.Conversation](ctx, s.gw, gateway.Query{
			Collection: models.CollectionConversations,
			Filters:    []gateway.Filter{gateway.Where(models.FieldParticipants, gateway.OpArrayContains, userID)},
			OrderBy:    models.FieldUpdatedAt,
			Descending: true,
		})

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.convGen.stale(gen) {
			return ErrSuperseded
		}
		if err != nil {
			return err
		}
		s.conversations = page.Items
		return nil
	})
}

// CreateConversation returns the conversation between the two participants,
// creating it when none exists. Participants are stored sorted, so the order
// given does not matter.
func (s *MessageStore) CreateConversation(ctx context.Context, participants []string, propertyID string) (string, error) {
	var id string
	err := s.track("createConversation", func() error {
		sorted := models.SortParticipants(participants)
		if len(sorted) != 2 || sorted[0] == "" || sorted[0] == sorted[1] {
			return ErrInvalidConversation
		}
		key := models.ParticipantKey(sorted)

		existing, err := s.conversationByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != "" {
			id = existing
			return nil
		}

		now := time.Now()
		c := models.Conversation{
			ID:             utils.GenerateID(),
			Participants:   sorted,
			ParticipantKey: key,
			PropertyID:     propertyID,
			UnreadCount:    0,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.gw.Create(ctx, models.CollectionConversations, &c); err != nil {
			// Lost a race against the unique participant key: use the winner.
			if winner, lerr := s.conversationByKey(ctx, key); lerr == nil && winner != "" {
				id = winner
				return nil
			}
			return err
		}
		id = c.ID
		return ignoreSuperseded(s.FetchConversations(ctx, sorted[0]))
	})
	if err != nil {
		s.failure("Error", err)
	}
	return id, err
}

func (s *MessageStore) conversationByKey(ctx context.Context, key string) (string, error) {
	page, err := gateway.List[models.Conversation](ctx, s.gw, gateway.Query{
		Collection: models.CollectionConversations,
		Filters:    []gateway.Filter{gateway.Where(models.FieldParticipantKey, gateway.OpEq, key)},
		Limit:      1,
	})
	if err != nil || len(page.Items) == 0 {
		return "", err
	}
	return page.Items[0].ID, nil
}

// SelectConversation makes id the selected conversation, reading it when it is
// not in the loaded list.
func (s *MessageStore) SelectConversation(ctx context.Context, id string) (models.Conversation, error) {
	s.mu.Lock()
	for _, c := range s.conversations {
		if c.ID == id {
			c := c
			s.selected = &c
			s.mu.Unlock()
			return c, nil
		}
	}
	s.mu.Unlock()

	var c models.Conversation
	err := s.track("selectConversation", func() error {
		var err error
		c, err = gateway.Fetch[models.Conversation](ctx, s.gw, models.CollectionConversations, id)
		if err != nil {
			return notFound(err, ErrConversationNotFound)
		}
		s.mu.Lock()
		s.selected = &c
		s.mu.Unlock()
		return nil
	})
	return c, err
}

func messagesQuery(conversationID string) gateway.Query {
	return gateway.Query{
		Collection: models.CollectionMessages,
		Filters:    []gateway.Filter{gateway.Where(models.FieldConversationID, gateway.OpEq, conversationID)},
		OrderBy:    models.FieldCreatedAt,
	}
}

// FetchMessages opens the live message query for conversationID, oldest
// first, replacing the message list on every change. Any previous live query
// is torn down before the new one is registered.
func (s *MessageStore) FetchMessages(conversationID string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.teardown()

	lq := &liveQuery{conversationID: conversationID, pending: true}
	s.mu.Lock()
	s.messages = nil
	s.subState = Subscribing
	s.inFlight++
	s.err = ""
	s.live = lq
	s.mu.Unlock()

	lq.sub = gateway.Subscribe[models.Message](s.ctx, s.gw, messagesQuery(conversationID), func(msgs []models.Message, err error) {
		s.mu.Lock()
		if lq.pending {
			lq.pending = false
			s.inFlight--
		}
		if err != nil {
			s.err = err.Error()
			s.mu.Unlock()
			s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("Message subscription delivery failed")
			return
		}
		s.messages = msgs
		s.subState = Active
		hook := s.onMessages
		s.mu.Unlock()

		if hook != nil {
			hook(conversationID, msgs)
		}
	})
}

// LoadMessages reads the messages of a conversation once, without a live query.
func (s *MessageStore) LoadMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.track("loadMessages", func() error {
		page, err := gateway.List[models.Message](ctx, s.gw, messagesQuery(conversationID))
		if err != nil {
			return err
		}
		msgs = page.Items
		s.mu.Lock()
		s.messages = msgs
		s.mu.Unlock()
		return nil
	})
	return msgs, err
}

// Cleanup tears down the live message query, if any.
func (s *MessageStore) Cleanup() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.teardown()
}

// teardown must be called with subMu held and mu released.
func (s *MessageStore) teardown() {
	s.mu.Lock()
	lq := s.live
	s.mu.Unlock()
	if lq == nil {
		return
	}

	lq.sub.Unsubscribe()

	s.mu.Lock()
	if lq.pending {
		lq.pending = false
		s.inFlight--
	}
	s.live = nil
	s.subState = Unsubscribed
	s.mu.Unlock()
}

// SendMessage stores a message and records it on the conversation, bumping the
// unread count in the same write.
func (s *MessageStore) SendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (models.Message, error) {
	var m models.Message
	err := s.track("sendMessage", func() error {
		now := time.Now()
		m = models.Message{
			ID:             utils.GenerateID(),
			ConversationID: conversationID,
			SenderID:       senderID,
			ReceiverID:     receiverID,
			Content:        content,
			Read:           false,
			CreatedAt:      now,
		}
		if err := s.gw.Create(ctx, models.CollectionMessages, &m); err != nil {
			return err
		}

		last := &models.LastMessage{ID: m.ID, Content: content, SenderID: senderID, CreatedAt: now}
		err := s.gw.Increment(ctx, models.CollectionConversations, conversationID, models.FieldUnreadCount, 1, map[string]any{
			models.FieldLastMessage: last,
			models.FieldUpdatedAt:   now,
		})
		return notFound(err, ErrConversationNotFound)
	})
	if err != nil {
		s.failure("Message not sent", err)
	}
	return m, err
}

// MarkMessagesAsRead flips every unread message addressed to userID in the
// conversation and resets its unread count. Calling it again changes nothing.
func (s *MessageStore) MarkMessagesAsRead(ctx context.Context, conversationID, userID string) error {
	return s.track("markMessagesAsRead", func() error {
		unread, err := gateway.List[models.Message](ctx, s.gw, gateway.Query{
			Collection: models.CollectionMessages,
			Filters: []gateway.Filter{
				gateway.Where(models.FieldConversationID, gateway.OpEq, conversationID),
				gateway.Where(models.FieldReceiverID, gateway.OpEq, userID),
				gateway.Where(models.FieldRead, gateway.OpEq, false),
			},
		})
		if err != nil {
			return err
		}
		for _, m := range unread.Items {
			if err := s.gw.Update(ctx, models.CollectionMessages, m.ID, map[string]any{models.FieldRead: true}); err != nil {
				return err
			}
		}

		err = s.gw.Update(ctx, models.CollectionConversations, conversationID, map[string]any{models.FieldUnreadCount: 0})
		if err != nil {
			return notFound(err, ErrConversationNotFound)
		}

		s.mu.Lock()
		if s.selected != nil && s.selected.ID == conversationID {
			c := *s.selected
			c.UnreadCount = 0
			s.selected = &c
		}
		for i := range s.conversations {
			if s.conversations[i].ID == conversationID {
				s.conversations[i].UnreadCount = 0
			}
		}
		s.mu.Unlock()
		return nil
	})
}
