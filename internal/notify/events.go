package notify

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/utils"
	"github.com/BatmanBruc/vip-access-bot/types"
)

func (n *Notifier) PaymentSubmitted(ctx context.Context, p types.PaymentRequest, plan types.Plan, user *types.User) error {
	return n.NotifyAdmins(ctx, messages.AdminNewPayment(p, plan, user), utils.ReviewKeyboard(p.ID))
}

// ProofAttached forwards the user's screenshot, or the transaction reference
// alone, to every admin with review buttons.
func (n *Notifier) ProofAttached(ctx context.Context, p types.PaymentRequest, user *types.User, proof types.Proof) error {
	caption := messages.AdminProof(p, user, proof)
	kb := utils.ReviewKeyboard(p.ID)
	if proof.FileID == "" {
		return n.NotifyAdmins(ctx, caption, kb)
	}
	return n.eachAdmin(ctx, func(ctx context.Context, adminID int64) error {
		return n.SendFile(ctx, adminID, proof.FileID, proof.IsDocument, caption, kb)
	})
}

func (n *Notifier) PaymentApproved(ctx context.Context, p types.PaymentRequest, plan types.Plan, expiresAt time.Time, channels []types.Channel) error {
	invites := n.InviteLinks(ctx, channels)
	return n.Send(ctx, p.UserID, messages.PaymentApproved(plan, expiresAt, invites), utils.MainMenuKeyboard())
}

func (n *Notifier) PaymentRejected(ctx context.Context, p types.PaymentRequest, reason string) error {
	return n.Send(ctx, p.UserID, messages.PaymentRejected(p.ID, reason), utils.MainMenuKeyboard())
}

func (n *Notifier) WithdrawalRequested(ctx context.Context, user *types.User, balance int64) error {
	return n.NotifyAdmins(ctx, messages.AdminWithdrawRequest(user, balance), nil)
}

func (n *Notifier) SubscriptionExpired(ctx context.Context, u types.User) error {
	return n.Send(ctx, chatOf(u), messages.SubscriptionExpired(u), utils.RenewKeyboard())
}

func (n *Notifier) ExpiryReminder(ctx context.Context, u types.User, now time.Time) error {
	text := messages.ExpiryReminder(u, now)
	if text == "" {
		return nil
	}
	return n.Send(ctx, chatOf(u), text, utils.RenewKeyboard())
}

// InviteLinks turns channels into links for one subscriber. Chat ids and
// usernames get a fresh single-use link; stored links are passed through.
func (n *Notifier) InviteLinks(ctx context.Context, channels []types.Channel) []string {
	links := make([]string, 0, len(channels))
	for _, c := range channels {
		if !isChatRef(c.Target) {
			links = append(links, c.Target)
			continue
		}
		link, err := n.createInvite(ctx, c.Target)
		if err != nil {
			n.log.Warn("create invite link", zap.Int64("channel_id", c.ID), zap.String("target", c.Target), zap.Error(err))
			continue
		}
		links = append(links, link)
	}
	if len(links) == 0 && n.fallback != "" {
		links = append(links, n.fallback)
	}
	return links
}

func (n *Notifier) createInvite(ctx context.Context, target string) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	link, err := n.api.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:      chatIDArg(target),
		Name:        inviteName,
		ExpireDate:  int(n.now().Add(inviteTTL).Unix()),
		MemberLimit: 1,
	})
	if err != nil {
		return "", err
	}
	if link == nil || link.InviteLink == "" {
		return "", errors.New("empty invite link")
	}
	return link.InviteLink, nil
}

func chatOf(u types.User) int64 {
	if u.ChatID != 0 {
		return u.ChatID
	}
	return u.UserID
}
