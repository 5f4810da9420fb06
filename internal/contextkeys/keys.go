package contextkeys

import (
	"context"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
)

type messageTypeKey struct{}
type callbackKey struct{}
type userIDKey struct{}
type chatIDKey struct{}
type newUserKey struct{}
type proofKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypePhoto       MessageType = "photo"
	MessageTypeDocument    MessageType = "document"
	MessageTypeUnknown     MessageType = "unknown"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "clickButton"
)

// ProofFile describes a screenshot or document attached to a message.
type ProofFile struct {
	FileID     string
	IsDocument bool
}

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v, ok := ctx.Value(messageTypeKey{}).(MessageType)
	if !ok {
		return MessageTypeUnknown, false
	}
	return v, true
}

// WithCallback stores the button payload decoded at the boundary.
func WithCallback(ctx context.Context, data callbacks.Data) context.Context {
	return context.WithValue(ctx, callbackKey{}, data)
}

func GetCallback(ctx context.Context) (callbacks.Data, bool) {
	v, ok := ctx.Value(callbackKey{}).(callbacks.Data)
	return v, ok
}

func WithUser(ctx context.Context, userID, chatID int64, created bool) context.Context {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	ctx = context.WithValue(ctx, chatIDKey{}, chatID)
	return context.WithValue(ctx, newUserKey{}, created)
}

func GetUserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey{}).(int64)
	return v, ok
}

func GetChatID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(chatIDKey{}).(int64)
	return v, ok
}

// IsNewUser reports whether this update created the user row.
func IsNewUser(ctx context.Context) bool {
	v, _ := ctx.Value(newUserKey{}).(bool)
	return v
}

func WithProofFile(ctx context.Context, f ProofFile) context.Context {
	return context.WithValue(ctx, proofKey{}, f)
}

func GetProofFile(ctx context.Context) (ProofFile, bool) {
	v, ok := ctx.Value(proofKey{}).(ProofFile)
	return v, ok
}
