package core

import (
	"context"

	"gwi.com/ai-chat-relay/internal/logger"
	"gwi.com/ai-chat-relay/internal/store"
)

const (
	channelName      = "Ai Chat"
	channelIDPrefix  = "chat-"
	ReasonNotInDir   = "User is not found. Please register first!"
	ReasonNotInStore = "User not found. Please register first."

	ReasonRegisterFields = "Name and email are required!"
	ReasonChatFields     = "Message and user id are required!"
	ReasonUserIDRequired = "USER ID is required"
)

// Store is the persistence gateway the service depends on.
type Store interface {
	FindUser(ctx context.Context, userID string) (*store.User, error)
	CreateUser(ctx context.Context, userID, name, email string) error
	FindChatsByUser(ctx context.Context, userID string) ([]store.ChatRecord, error)
	CreateChat(ctx context.Context, userID, message, reply string) (*store.ChatRecord, error)
}

// ChatService composes the directory, the completion provider and the store.
// It holds no per-request state.
type ChatService struct {
	store     Store
	directory Directory
	completer Completer
	log       *logger.Logger
}

func NewChatService(s Store, dir Directory, completer Completer, log *logger.Logger) *ChatService {
	return &ChatService{
		store:     s,
		directory: dir,
		completer: completer,
		log:       log.With("service", "ChatService"),
	}
}

type RegisteredUser struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// RegisterUser makes sure the user exists in both the directory and the
// store. Calling it again with the same email changes nothing.
func (s *ChatService) RegisterUser(ctx context.Context, name, email string) (*RegisteredUser, error) {
	if name == "" || email == "" {
		return nil, newError(ErrorValidation, ReasonRegisterFields, nil)
	}
	userID := UserIDFromEmail(email)

	dirUsers, err := s.directory.FindUsers(ctx, userID)
	if err != nil {
		return nil, withKind(ErrorDirectory, "query_users_failed", err)
	}
	if len(dirUsers) == 0 {
		err := s.directory.UpsertUser(ctx, DirectoryUser{ID: userID, Name: name, Email: email, Role: userRole})
		if err != nil {
			return nil, withKind(ErrorDirectory, "upsert_user_failed", err)
		}
	}

	existing, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return nil, withKind(ErrorStorage, "find_user_failed", err)
	}
	if existing == nil {
		s.log.Info("User does not exist in the database. Adding...", "user_id", userID)
		if err := s.store.CreateUser(ctx, userID, name, email); err != nil {
			return nil, withKind(ErrorStorage, "create_user_failed", err)
		}
	}

	return &RegisteredUser{UserID: userID, Name: name, Email: email}, nil
}

// Chat relays one message: it checks registration, asks the completer for a
// reply, stores the exchange and publishes the reply to the user's channel.
// A publish failure after the record is stored is not rolled back.
func (s *ChatService) Chat(ctx context.Context, userID, message string) (string, error) {
	if userID == "" || message == "" {
		return "", newError(ErrorValidation, ReasonChatFields, nil)
	}
	dirUsers, err := s.directory.FindUsers(ctx, userID)
	if err != nil {
		return "", withKind(ErrorDirectory, "query_users_failed", err)
	}
	if len(dirUsers) == 0 {
		return "", newError(ErrorNotFound, ReasonNotInDir, nil)
	}

	existing, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return "", withKind(ErrorStorage, "find_user_failed", err)
	}
	if existing == nil {
		return "", newError(ErrorNotFound, ReasonNotInStore, nil)
	}

	reply, err := s.completer.Complete(ctx, message)
	if err != nil {
		return "", withKind(ErrorCompletion, "completion_failed", err)
	}

	record, err := s.store.CreateChat(ctx, userID, message, reply)
	if err != nil {
		return "", withKind(ErrorStorage, "create_chat_failed", err)
	}
	s.log.Debug("Stored chat record", "user_id", userID, "chat_id", record.ID)

	channel, err := s.directory.CreateChannel(ctx, ChannelKindMessaging, channelIDPrefix+userID, ChannelMetadata{
		Name:        channelName,
		CreatedByID: BotUserID,
	})
	if err != nil {
		return "", withKind(ErrorDirectory, "create_channel_failed", err)
	}
	if err := channel.Publish(ctx, reply, BotUserID); err != nil {
		s.log.Warn("Reply stored but not published", "user_id", userID, "chat_id", record.ID, "error", err)
		return "", withKind(ErrorDirectory, "publish_failed", err)
	}

	return reply, nil
}

// GetMessages returns every stored exchange for userID, oldest first.
func (s *ChatService) GetMessages(ctx context.Context, userID string) ([]store.ChatRecord, error) {
	if userID == "" {
		return nil, newError(ErrorValidation, ReasonUserIDRequired, nil)
	}
	chats, err := s.store.FindChatsByUser(ctx, userID)
	if err != nil {
		return nil, withKind(ErrorStorage, "find_chats_failed", err)
	}
	if chats == nil {
		chats = []store.ChatRecord{}
	}
	return chats, nil
}

// withKind keeps an existing *Error untouched and wraps anything else.
func withKind(kind ErrorKind, reason string, err error) error {
	if KindOf(err) != "" {
		return err
	}
	return newError(kind, reason, err)
}
