package handlers

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/contextkeys"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/types"
)

const maxNoteLen = 256

// HandleProof attaches a screenshot, document or transaction id to the
// request the user just submitted. Outside that state the message is not
// understood.
func (bh *Handlers) HandleProof(ctx context.Context, api BotAPI, msg *models.Message, userID, chatID int64) {
	if msg == nil {
		return
	}
	session, err := bh.sessions.GetSession(ctx, userID)
	if err != nil {
		bh.log.Warn("load session", zap.Int64("user_id", userID), zap.Error(err))
		bh.send(ctx, api, chatID, messages.ErrorDefault(), nil)
		return
	}
	if session.State != types.StateAwaitingProof || session.PaymentID == 0 {
		bh.send(ctx, api, chatID, messages.ErrorUnsupportedMessage(), nil)
		return
	}

	proof := proofFromMessage(ctx, msg)

	p, err := bh.svc.AttachProof(ctx, userID, session.PaymentID, proof)
	switch {
	case errors.Is(err, types.ErrEmptyProof):
		bh.send(ctx, api, chatID, messages.ErrorUnsupportedMessage(), nil)
	case errors.Is(err, types.ErrInvalidReference):
		bh.send(ctx, api, chatID, messages.ProofNotReference(), nil)
	case errors.Is(err, types.ErrDuplicateReference):
		bh.send(ctx, api, chatID, messages.ProofDuplicate(), nil)
	case errors.Is(err, types.ErrAlreadyProcessed), errors.Is(err, types.ErrPaymentNotFound):
		_ = bh.sessions.ClearSession(ctx, userID)
		bh.replyError(ctx, api, chatID, err, session.PaymentID, 0)
	case err != nil:
		bh.replyError(ctx, api, chatID, err, session.PaymentID, 0)
	default:
		if err := bh.sessions.ClearSession(ctx, userID); err != nil {
			bh.log.Warn("clear session", zap.Int64("user_id", userID), zap.Error(err))
		}
		bh.send(ctx, api, chatID, messages.ProofReceived(p.ID), nil)
	}
}

// proofFromMessage builds the proof from a screenshot or document, whose
// caption is kept as a note, or from a text message holding a transaction id.
func proofFromMessage(ctx context.Context, msg *models.Message) types.Proof {
	if f, ok := contextkeys.GetProofFile(ctx); ok {
		return types.Proof{
			FileID:     f.FileID,
			IsDocument: f.IsDocument,
			Note:       clip(strings.TrimSpace(msg.Caption), maxNoteLen),
		}
	}
	return types.Proof{TransactionRef: strings.TrimSpace(msg.Text)}
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
