package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/contextkeys"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/subscription"
	"github.com/BatmanBruc/vip-access-bot/internal/utils"
	"github.com/BatmanBruc/vip-access-bot/types"
)

const referralPrefix = "ref_"

// parseCommand splits "/cmd@bot a b" into "/cmd" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}

func (bh *Handlers) HandleCommand(ctx context.Context, api BotAPI, msg *models.Message, userID, chatID int64) {
	if msg == nil {
		return
	}
	cmd, args := parseCommand(msg.Text)

	switch cmd {
	case "/start":
		bh.handleStart(ctx, api, userID, chatID, args)
		return
	case "/plans":
		bh.showPlans(ctx, api, chatID, nil)
		return
	case "/mysub":
		bh.showSubscription(ctx, api, userID, chatID, nil)
		return
	case "/refer":
		bh.showReferral(ctx, api, userID, chatID, nil)
		return
	case "/withdraw":
		bh.requestWithdrawal(ctx, api, userID, chatID)
		return
	case "/help":
		bh.send(ctx, api, chatID, messages.Help(bh.isAdmin(userID)), utils.BackToMenuKeyboard())
		return
	}

	if !bh.isAdmin(userID) {
		bh.send(ctx, api, chatID, messages.ErrorUnknownCommand(), nil)
		return
	}

	switch cmd {
	case "/approve":
		bh.cmdApprove(ctx, api, userID, chatID, args)
	case "/reject":
		bh.cmdReject(ctx, api, userID, chatID, args)
	case "/addsub":
		bh.cmdAddSub(ctx, api, userID, chatID, args)
	case "/add_channel":
		bh.cmdAddChannel(ctx, api, userID, chatID, args)
	case "/channels":
		bh.cmdChannels(ctx, api, chatID, args)
	case "/pending":
		bh.cmdPending(ctx, api, chatID)
	case "/stats":
		bh.cmdStats(ctx, api, chatID)
	case "/broadcast":
		bh.cmdBroadcast(ctx, api, chatID, msg.Text)
	case "/payout":
		bh.cmdPayout(ctx, api, userID, chatID, args)
	case "/sweep":
		bh.cmdSweep(ctx, api, chatID)
	case "/set_upi":
		bh.cmdSetUPI(ctx, api, userID, chatID, args)
	case "/set_crypto":
		bh.cmdSetCrypto(ctx, api, userID, chatID, args)
	case "/list_wallets":
		bh.cmdListWallets(ctx, api, chatID)
	default:
		bh.send(ctx, api, chatID, messages.ErrorUnknownCommand(), nil)
	}
}

func (bh *Handlers) handleStart(ctx context.Context, api BotAPI, userID, chatID int64, args []string) {
	if len(args) > 0 && contextkeys.IsNewUser(ctx) && strings.HasPrefix(args[0], referralPrefix) {
		referrerID, err := strconv.ParseInt(strings.TrimPrefix(args[0], referralPrefix), 10, 64)
		if err == nil {
			if _, err := bh.svc.AttachReferral(ctx, userID, referrerID); err != nil {
				bh.log.Warn("attach referral", zap.Int64("user_id", userID), zap.Int64("referrer_id", referrerID), zap.Error(err))
			}
		}
	}

	_ = bh.sessions.ClearSession(ctx, userID)
	u, err := bh.svc.Subscription(ctx, userID)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	name := "there"
	active := false
	if u != nil {
		name = u.DisplayName()
		active = u.ActiveAt(bh.now())
	}
	bh.send(ctx, api, chatID, messages.Welcome(name, active), utils.MainMenuKeyboard())
}

func parsePaymentID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	return id, err == nil && id > 0
}

func (bh *Handlers) cmdApprove(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	id, ok := parsePaymentID(args)
	if !ok {
		bh.send(ctx, api, chatID, messages.AdminApproveUsage(), nil)
		return
	}
	res, err := bh.svc.Approve(ctx, id, adminID)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, id, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.AdminApproved(res.Payment, res.ExpiresAt, res.Commission), nil)
}

func (bh *Handlers) cmdReject(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	id, ok := parsePaymentID(args)
	if !ok {
		bh.send(ctx, api, chatID, messages.AdminRejectUsage(), nil)
		return
	}
	reason := strings.Join(args[1:], " ")
	if _, err := bh.svc.Reject(ctx, id, adminID, reason); err != nil {
		bh.replyError(ctx, api, chatID, err, id, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.AdminRejected(id), nil)
}

// cmdAddSub grants days of access without a payment: /addsub <user_id> <days> [plan_id].
func (bh *Handlers) cmdAddSub(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	if len(args) < 2 {
		bh.send(ctx, api, chatID, messages.AdminAddSubUsage(), nil)
		return
	}
	userID, err1 := strconv.ParseInt(args[0], 10, 64)
	days, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || userID <= 0 || days <= 0 {
		bh.send(ctx, api, chatID, messages.AdminAddSubUsage(), nil)
		return
	}
	if days > subscription.MaxGrantDays {
		bh.send(ctx, api, chatID, messages.AdminAddSubTooLong(subscription.MaxGrantDays), nil)
		return
	}
	planID := bh.defPlanID
	if len(args) > 2 {
		if id, err := strconv.Atoi(args[2]); err == nil {
			planID = id
		}
	}

	expiresAt, err := bh.svc.GrantOrExtend(ctx, userID, planID, days, adminID)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, planID)
		return
	}
	bh.send(ctx, api, chatID, messages.AdminGrantDone(userID, expiresAt), nil)

	invites := bh.notifier.InviteLinks(ctx, bh.svc.AccessChannels(ctx))
	bh.send(ctx, api, userID, messages.AccessInfo(true, invites), utils.MainMenuKeyboard())
}

func (bh *Handlers) cmdAddChannel(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	if len(args) < 2 {
		bh.send(ctx, api, chatID, messages.AdminAddChannelUsage(), nil)
		return
	}
	c, err := bh.svc.AddChannel(ctx, adminID, args[0], args[1], strings.Join(args[2:], " "))
	switch {
	case errors.Is(err, types.ErrDuplicateChannel):
		bh.send(ctx, api, chatID, messages.ChannelDuplicate(), nil)
	case errors.Is(err, types.ErrInvalidChannel):
		bh.send(ctx, api, chatID, messages.AdminAddChannelUsage(), nil)
	case err != nil:
		bh.replyError(ctx, api, chatID, err, 0, 0)
	default:
		bh.send(ctx, api, chatID, messages.ChannelAdded(*c), nil)
	}
}

func (bh *Handlers) cmdChannels(ctx context.Context, api BotAPI, chatID int64, args []string) {
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	list, err := bh.svc.ListChannels(ctx, topic)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.ChannelList(list), nil)
}

func (bh *Handlers) cmdPending(ctx context.Context, api BotAPI, chatID int64) {
	list, err := bh.svc.ListPending(ctx)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.AdminPendingList(list), nil)
}

func (bh *Handlers) cmdStats(ctx context.Context, api BotAPI, chatID int64) {
	st, err := bh.svc.Stats(ctx)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.AdminStats(st), nil)
}

func (bh *Handlers) cmdBroadcast(ctx context.Context, api BotAPI, chatID int64, raw string) {
	text := strings.TrimSpace(raw)
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		text = strings.TrimSpace(text[i:])
	} else {
		text = ""
	}
	if text == "" {
		bh.send(ctx, api, chatID, messages.AdminBroadcastUsage(), nil)
		return
	}
	ids, err := bh.svc.BroadcastTargets(ctx)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	sent, failed := bh.notifier.Broadcast(ctx, ids, "📣 "+messages.Escape(text))
	bh.send(ctx, api, chatID, messages.BroadcastDone(sent, failed), nil)
}

func (bh *Handlers) cmdPayout(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	if len(args) < 2 {
		bh.send(ctx, api, chatID, messages.AdminPayoutUsage(), nil)
		return
	}
	userID, err1 := strconv.ParseInt(args[0], 10, 64)
	amount, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		bh.send(ctx, api, chatID, messages.AdminPayoutUsage(), nil)
		return
	}
	balance, err := bh.svc.Payout(ctx, adminID, userID, amount)
	switch {
	case errors.Is(err, types.ErrInvalidAmount):
		bh.send(ctx, api, chatID, messages.AdminPayoutUsage(), nil)
	case errors.Is(err, types.ErrInsufficientBalance), errors.Is(err, types.ErrNotFound):
		bh.send(ctx, api, chatID, messages.PayoutInsufficient(userID), nil)
	case err != nil:
		bh.replyError(ctx, api, chatID, err, 0, 0)
	default:
		bh.send(ctx, api, chatID, messages.PayoutDone(userID, amount, balance), nil)
		bh.send(ctx, api, userID, messages.PayoutSent(amount), nil)
	}
}

func (bh *Handlers) cmdSweep(ctx context.Context, api BotAPI, chatID int64) {
	res, err := bh.sweeper.RunOnce(ctx)
	if errors.Is(err, types.ErrSweepInProgress) {
		bh.send(ctx, api, chatID, messages.SweepBusy(), nil)
		return
	}
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.SweepDone(res.Expired, res.Reminded), nil)
}

// cmdSetUPI changes the UPI id shown to payers: /set_upi <upi_id> [payee name].
func (bh *Handlers) cmdSetUPI(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	if len(args) == 0 {
		bh.send(ctx, api, chatID, messages.AdminSetUPIUsage(), nil)
		return
	}
	payee := strings.Join(args[1:], " ")
	err := bh.svc.SetUPI(ctx, adminID, args[0], payee)
	switch {
	case errors.Is(err, types.ErrInvalidUPI):
		bh.send(ctx, api, chatID, messages.AdminSetUPIUsage(), nil)
	case err != nil:
		bh.replyError(ctx, api, chatID, err, 0, 0)
	default:
		bh.send(ctx, api, chatID, messages.UPIUpdated(args[0], strings.TrimSpace(payee)), nil)
	}
}

func (bh *Handlers) cmdSetCrypto(ctx context.Context, api BotAPI, adminID, chatID int64, args []string) {
	if len(args) != 2 {
		bh.send(ctx, api, chatID, messages.AdminSetCryptoUsage(), nil)
		return
	}
	w, err := bh.svc.SetWallet(ctx, adminID, args[0], args[1])
	switch {
	case errors.Is(err, types.ErrInvalidWallet):
		bh.send(ctx, api, chatID, messages.AdminSetCryptoUsage(), nil)
	case err != nil:
		bh.replyError(ctx, api, chatID, err, 0, 0)
	default:
		bh.send(ctx, api, chatID, messages.WalletUpdated(w), nil)
	}
}

func (bh *Handlers) cmdListWallets(ctx context.Context, api BotAPI, chatID int64) {
	ps, err := bh.svc.PaymentSettings(ctx)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.PaymentSettingsList(ps), nil)
}
