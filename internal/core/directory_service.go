package core

import (
	"context"
	"fmt"

	stream "github.com/GetStream/stream-chat-go/v5"
	"github.com/google/uuid"

	"gwi.com/ai-chat-relay/internal/logger"
)

const (
	// BotUserID is the synthetic identity that authors every generated reply.
	BotUserID   = "ai_bot"
	botUserName = "AI Bot"

	ChannelKindMessaging = "messaging"
	userRole             = "user"
)

type DirectoryUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type ChannelMetadata struct {
	Name        string
	CreatedByID string
}

type Channel interface {
	Publish(ctx context.Context, text, authorID string) error
}

// Directory is the chat platform's user and channel registry.
type Directory interface {
	FindUsers(ctx context.Context, userID string) ([]DirectoryUser, error)
	UpsertUser(ctx context.Context, user DirectoryUser) error
	CreateChannel(ctx context.Context, kind, channelID string, meta ChannelMetadata) (Channel, error)
}

// StreamDirectory is the Directory backed by Stream Chat's server-side client.
type StreamDirectory struct {
	client *stream.Client
	log    *logger.Logger
}

func NewStreamDirectory(apiKey, apiSecret string, log *logger.Logger) (*StreamDirectory, error) {
	client, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create Stream client: %w", err)
	}
	return &StreamDirectory{client: client, log: log.With("service", "StreamDirectory")}, nil
}

func (d *StreamDirectory) FindUsers(ctx context.Context, userID string) ([]DirectoryUser, error) {
	resp, err := d.client.QueryUsers(ctx, &stream.QueryOption{
		Filter: map[string]interface{}{
			"id": map[string]interface{}{"$eq": userID},
		},
	})
	if err != nil {
		return nil, newError(ErrorDirectory, "query_users_failed", err)
	}

	users := make([]DirectoryUser, 0, len(resp.Users))
	for _, u := range resp.Users {
		if u == nil {
			continue
		}
		users = append(users, fromStreamUser(u))
	}
	return users, nil
}

func (d *StreamDirectory) UpsertUser(ctx context.Context, user DirectoryUser) error {
	if _, err := d.client.UpsertUser(ctx, toStreamUser(user)); err != nil {
		return newError(ErrorDirectory, "upsert_user_failed", err)
	}
	return nil
}

// CreateChannel creates the channel, or returns the existing one with the
// same kind and id.
func (d *StreamDirectory) CreateChannel(ctx context.Context, kind, channelID string, meta ChannelMetadata) (Channel, error) {
	resp, err := d.client.CreateChannel(ctx, kind, channelID, meta.CreatedByID, &stream.ChannelRequest{
		ExtraData: map[string]interface{}{"name": meta.Name},
	})
	if err != nil {
		return nil, newError(ErrorDirectory, "create_channel_failed", err)
	}
	if resp == nil || resp.Channel == nil {
		return nil, newError(ErrorDirectory, "create_channel_empty_response", nil)
	}
	return &streamChannel{channel: resp.Channel}, nil
}

// EnsureBotUser registers the reply author so channel creation and publish
// never reference an unknown user.
func (d *StreamDirectory) EnsureBotUser(ctx context.Context) error {
	d.log.Debug("Upserting bot user", "bot_id", BotUserID)
	return d.UpsertUser(ctx, DirectoryUser{ID: BotUserID, Name: botUserName, Role: userRole})
}

type streamChannel struct {
	channel *stream.Channel
}

func (c *streamChannel) Publish(ctx context.Context, text, authorID string) error {
	msg := &stream.Message{
		ID:   uuid.NewString(),
		Text: text,
	}
	if _, err := c.channel.SendMessage(ctx, msg, authorID); err != nil {
		return newError(ErrorDirectory, "send_message_failed", err)
	}
	return nil
}

func toStreamUser(user DirectoryUser) *stream.User {
	su := &stream.User{
		ID:   user.ID,
		Name: user.Name,
		Role: user.Role,
	}
	if user.Email != "" {
		su.ExtraData = map[string]interface{}{"email": user.Email}
	}
	return su
}

func fromStreamUser(u *stream.User) DirectoryUser {
	du := DirectoryUser{ID: u.ID, Name: u.Name, Role: u.Role}
	if email, ok := u.ExtraData["email"].(string); ok {
		du.Email = email
	}
	return du
}
