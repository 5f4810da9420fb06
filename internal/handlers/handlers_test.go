package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
	"github.com/BatmanBruc/vip-access-bot/internal/contextkeys"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/subscription"
	"github.com/BatmanBruc/vip-access-bot/internal/sweeper"
	"github.com/BatmanBruc/vip-access-bot/internal/testutil"
	"github.com/BatmanBruc/vip-access-bot/types"
)

const (
	adminID = int64(1)
	buyerID = int64(42)
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     map[int64][]string
	photos   int
	edits    []string
	answered []bot.AnswerCallbackQueryParams
}

func newFakeAPI() *fakeAPI { return &fakeAPI{sent: map[int64][]string{}} }

func (f *fakeAPI) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := p.ChatID.(int64)
	f.sent[id] = append(f.sent[id], p.Text)
	return &models.Message{ID: 1}, nil
}

func (f *fakeAPI) SendPhoto(_ context.Context, _ *bot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos++
	return &models.Message{ID: 2}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, p.Text)
	return &models.Message{ID: p.MessageID}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, p *bot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, *p)
	return true, nil
}

func (f *fakeAPI) last(chatID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.sent[chatID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// quietNotifier satisfies both the workflow notifier and the broadcaster.
type quietNotifier struct {
	broadcasts int
}

func (quietNotifier) PaymentSubmitted(context.Context, types.PaymentRequest, types.Plan, *types.User) error {
	return nil
}
func (quietNotifier) ProofAttached(context.Context, types.PaymentRequest, *types.User, types.Proof) error {
	return nil
}
func (quietNotifier) PaymentApproved(context.Context, types.PaymentRequest, types.Plan, time.Time, []types.Channel) error {
	return nil
}
func (quietNotifier) PaymentRejected(context.Context, types.PaymentRequest, string) error { return nil }
func (quietNotifier) WithdrawalRequested(context.Context, *types.User, int64) error       { return nil }

func (n *quietNotifier) Broadcast(_ context.Context, ids []int64, _ string) (int, int) {
	n.broadcasts++
	return len(ids), 0
}

func (n *quietNotifier) InviteLinks(_ context.Context, channels []types.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.Target)
	}
	return out
}

type stubSweeper struct{ err error }

func (s stubSweeper) RunOnce(context.Context) (sweeper.Result, error) {
	return sweeper.Result{Expired: 2, Reminded: 1}, s.err
}

type fixture struct {
	h        *Handlers
	api      *fakeAPI
	store    *testutil.MemStore
	sessions *testutil.MemSessions
	svc      *subscription.Service
	notifier *quietNotifier
}

func newFixture(t *testing.T, sw SweepRunner) *fixture {
	t.Helper()
	store := testutil.NewMemStore(
		types.Plan{ID: 1, Name: "Weekly", DurationDays: 7, Price: 99, Active: true},
		types.Plan{ID: 2, Name: "Monthly", DurationDays: 30, Price: 299, Active: true},
	)
	n := &quietNotifier{}
	svc := subscription.New(store, n, nil, subscription.Config{CommissionRate: decimal.RequireFromString("0.10"), ChannelTopic: "VIP"})
	sessions := testutil.NewMemSessions()
	if sw == nil {
		sw = stubSweeper{}
	}
	h := NewHandlers(svc, sessions, n, sw, nil, Config{
		Admins:        []int64{adminID},
		BotUsername:   "vip_test_bot",
		DefaultPlanID: 2,
		Payment:       messages.PaymentDetails{UPIID: "shop@upi", UPIPayeeName: "Shop"},
	})
	return &fixture{h: h, api: newFakeAPI(), store: store, sessions: sessions, svc: svc, notifier: n}
}

func userCtx(userID int64, created bool, typ contextkeys.MessageType) context.Context {
	ctx := contextkeys.WithUser(context.Background(), userID, userID, created)
	return contextkeys.WithMessageType(ctx, typ)
}

func (f *fixture) command(userID int64, text string) {
	f.commandAs(userID, false, text)
}

func (f *fixture) commandAs(userID int64, created bool, text string) {
	_, _ = f.svc.TouchUser(context.Background(), types.User{UserID: userID, ChatID: userID})
	ctx := userCtx(userID, created, contextkeys.MessageTypeCommand)
	f.h.Dispatch(ctx, f.api, &models.Update{Message: &models.Message{Text: text, Chat: models.Chat{ID: userID}}})
}

func (f *fixture) press(userID int64, data callbacks.Data) {
	ctx := contextkeys.WithCallback(userCtx(userID, false, contextkeys.MessageTypeClickButton), data)
	f.h.Dispatch(ctx, f.api, &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:      "cb",
		From:    models.User{ID: userID, FirstName: "Test"},
		Data:    data.Encode(),
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{ID: 10, Chat: models.Chat{ID: userID}}},
	}})
}

func (f *fixture) photo(userID int64, fileID string) {
	f.captionedPhoto(userID, fileID, "")
}

func (f *fixture) captionedPhoto(userID int64, fileID, caption string) {
	ctx := contextkeys.WithProofFile(userCtx(userID, false, contextkeys.MessageTypePhoto), contextkeys.ProofFile{FileID: fileID})
	f.h.Dispatch(ctx, f.api, &models.Update{Message: &models.Message{Photo: []models.PhotoSize{{FileID: fileID}}, Caption: caption}})
}

func (f *fixture) text(userID int64, text string) {
	ctx := userCtx(userID, false, contextkeys.MessageTypeText)
	f.h.Dispatch(ctx, f.api, &models.Update{Message: &models.Message{Text: text, Chat: models.Chat{ID: userID}}})
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/Reject@vip_bot 12 fake screenshot")
	assert.Equal(t, "/reject", cmd)
	assert.Equal(t, []string{"12", "fake", "screenshot"}, args)

	cmd, args = parseCommand("   ")
	assert.Empty(t, cmd)
	assert.Empty(t, args)
}

func TestPurchaseFlowEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.commandAs(buyerID, true, "/start")
	assert.Contains(t, f.api.last(buyerID), "Welcome")

	f.press(buyerID, callbacks.Plan(2))
	f.press(buyerID, callbacks.Buy(2))
	f.press(buyerID, callbacks.PayMethod(types.MethodUPI, 2))
	assert.Equal(t, 1, f.api.photos, "upi gets a qr code")
	require.NotEmpty(t, f.api.edits)
	assert.Contains(t, f.api.edits[len(f.api.edits)-1], "shop@upi")

	f.press(buyerID, callbacks.ConfirmPaid(types.MethodUPI, 2))
	assert.Contains(t, f.api.last(buyerID), "Payment request #1")

	session, err := f.sessions.GetSession(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitingProof, session.State)
	assert.Equal(t, int64(1), session.PaymentID)

	f.photo(buyerID, "screenshot-1")
	assert.Contains(t, f.api.last(buyerID), "Proof attached")
	p, ok := f.store.Payment(1)
	require.True(t, ok)
	assert.Equal(t, "screenshot-1", p.ProofFileID)

	f.command(adminID, "/approve 1")
	assert.Contains(t, f.api.last(adminID), "approved")

	active, err := f.svc.HasActiveAccess(ctx, buyerID)
	require.NoError(t, err)
	assert.True(t, active)

	f.command(adminID, "/approve 1")
	assert.Contains(t, f.api.last(adminID), "already processed")
}

func TestAdminCommandsHiddenFromUsers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p, err := f.svc.Submit(ctx, buyerID, 2, types.MethodBank)
	require.NoError(t, err)

	f.command(buyerID, "/approve 1")
	assert.Equal(t, messages.ErrorUnknownCommand(), f.api.last(buyerID))

	f.press(buyerID, callbacks.Approve(p.ID))
	require.NotEmpty(t, f.api.answered)
	assert.True(t, f.api.answered[len(f.api.answered)-1].ShowAlert)

	stored, _ := f.store.Payment(p.ID)
	assert.Equal(t, types.PaymentPending, stored.Status)
}

func TestRejectByButtonAndCommand(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, _ := f.svc.Submit(ctx, buyerID, 1, types.MethodUPI)
	b, _ := f.svc.Submit(ctx, buyerID, 2, types.MethodUPI)

	f.press(adminID, callbacks.Reject(a.ID))
	assert.Contains(t, f.api.last(adminID), "rejected")

	f.command(adminID, "/reject 2 wrong amount")
	stored, _ := f.store.Payment(b.ID)
	assert.Equal(t, types.PaymentRejected, stored.Status)
	assert.Equal(t, "wrong amount", stored.Note)

	f.command(adminID, "/reject")
	assert.Equal(t, messages.AdminRejectUsage(), f.api.last(adminID))

	f.command(adminID, "/approve 99")
	assert.Equal(t, messages.PaymentNotFound(99), f.api.last(adminID))
}

func TestStartWithReferral(t *testing.T) {
	f := newFixture(t, nil)
	_, _ = f.svc.TouchUser(context.Background(), types.User{UserID: 7, ChatID: 7})

	f.commandAs(buyerID, true, "/start ref_7")

	ref, ok := f.store.Referral(buyerID)
	require.True(t, ok)
	assert.Equal(t, int64(7), ref.ReferrerID)

	f.command(7, "/refer")
	assert.Contains(t, f.api.last(7), "https://t.me/vip_test_bot?start=ref_7")
	assert.Contains(t, f.api.last(7), "Invited: 1")
}

func TestAddSubGrantsAccess(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.AddChannel(context.Background(), &types.Channel{Topic: "VIP", Target: "https://t.me/+room"}))

	f.command(adminID, "/addsub 42 10")
	assert.Contains(t, f.api.last(adminID), "now has access")
	assert.Contains(t, f.api.last(buyerID), "https://t.me/+room")

	u, err := f.svc.Subscription(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Equal(t, "Monthly", u.PlanName)

	f.command(adminID, "/addsub 42 zero")
	assert.Equal(t, messages.AdminAddSubUsage(), f.api.last(adminID))
}

func TestProofWithoutPendingRequest(t *testing.T) {
	f := newFixture(t, nil)

	f.photo(buyerID, "random")
	assert.Equal(t, messages.ErrorUnsupportedMessage(), f.api.last(buyerID))
}

func TestTextReferenceAsProof(t *testing.T) {
	f := newFixture(t, nil)
	f.press(buyerID, callbacks.ConfirmPaid(types.MethodBank, 1))

	ctx := userCtx(buyerID, false, contextkeys.MessageTypeText)
	f.h.Dispatch(ctx, f.api, &models.Update{Message: &models.Message{Text: " UTR998877 "}})

	p, _ := f.store.Payment(1)
	assert.Equal(t, "UTR998877", p.TransactionRef)
}

func TestAdminUtilities(t *testing.T) {
	f := newFixture(t, stubSweeper{err: types.ErrSweepInProgress})

	f.command(adminID, "/add_channel VIP t.me/+abc main room")
	assert.Contains(t, f.api.last(adminID), "https://t.me/+abc")
	f.command(adminID, "/add_channel VIP t.me/+abc")
	assert.Equal(t, messages.ChannelDuplicate(), f.api.last(adminID))
	f.command(adminID, "/channels")
	assert.Contains(t, f.api.last(adminID), "main room")

	f.command(adminID, "/sweep")
	assert.Equal(t, messages.SweepBusy(), f.api.last(adminID))

	f.command(adminID, "/broadcast hello everyone")
	assert.Equal(t, 1, f.notifier.broadcasts)
	assert.True(t, strings.HasPrefix(f.api.last(adminID), "📣 Broadcast finished"))

	f.command(adminID, "/payout 42 10")
	assert.Equal(t, messages.PayoutInsufficient(42), f.api.last(adminID))

	f.command(adminID, "/stats")
	assert.Contains(t, f.api.last(adminID), "Statistics")

	f.command(adminID, "/pending")
	assert.Equal(t, "✨ No pending payments.", f.api.last(adminID))
}

func TestSweepCommandReportsCounts(t *testing.T) {
	f := newFixture(t, nil)

	f.command(adminID, "/sweep")
	assert.Equal(t, messages.SweepDone(2, 1), f.api.last(adminID))
}

func TestUnknownButton(t *testing.T) {
	f := newFixture(t, nil)

	f.press(buyerID, callbacks.Data{})
	require.Len(t, f.api.answered, 1)
	assert.Equal(t, messages.ButtonInvalid(), f.api.answered[0].Text)
}

func TestSameCaptionOnScreenshotsFromTwoBuyers(t *testing.T) {
	f := newFixture(t, nil)
	const otherBuyer = int64(43)

	f.press(buyerID, callbacks.ConfirmPaid(types.MethodUPI, 2))
	f.press(otherBuyer, callbacks.ConfirmPaid(types.MethodUPI, 2))

	f.captionedPhoto(buyerID, "shot-42", "paid")
	f.captionedPhoto(otherBuyer, "shot-43", "paid")

	for id, buyer := range map[int64]int64{1: buyerID, 2: otherBuyer} {
		assert.Contains(t, f.api.last(buyer), "Proof attached")
		p, ok := f.store.Payment(id)
		require.True(t, ok)
		assert.NotEmpty(t, p.ProofFileID)
		assert.Empty(t, p.TransactionRef, "captions are not transaction ids")
		assert.Equal(t, "paid", p.Note)
	}
}

func TestTextProofMustLookLikeReference(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.press(buyerID, callbacks.ConfirmPaid(types.MethodUPI, 2))

	f.text(buyerID, "done")
	assert.Equal(t, messages.ProofNotReference(), f.api.last(buyerID))
	session, err := f.sessions.GetSession(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitingProof, session.State, "buyer can still send a real reference")

	f.text(buyerID, "412345678901")
	assert.Contains(t, f.api.last(buyerID), "Proof attached")
	p, _ := f.store.Payment(1)
	assert.Equal(t, "412345678901", p.TransactionRef)
}

func TestLongCaptionIsClippedOnRuneBoundary(t *testing.T) {
	f := newFixture(t, nil)
	f.press(buyerID, callbacks.ConfirmPaid(types.MethodUPI, 2))

	f.captionedPhoto(buyerID, "shot", strings.Repeat("é", maxNoteLen+37))

	p, _ := f.store.Payment(1)
	assert.True(t, utf8.ValidString(p.Note))
	assert.Equal(t, maxNoteLen, utf8.RuneCountInString(p.Note))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "éé", clip("ééé", 2))
	assert.Equal(t, "", clip("", 3))
}

func TestPaymentSettingsCommands(t *testing.T) {
	f := newFixture(t, nil)

	f.command(adminID, "/set_upi newshop@okaxis New Shop")
	assert.Equal(t, messages.UPIUpdated("newshop@okaxis", "New Shop"), f.api.last(adminID))

	f.command(adminID, "/set_upi not-an-upi")
	assert.Equal(t, messages.AdminSetUPIUsage(), f.api.last(adminID))

	f.command(adminID, "/set_crypto usdt TXabc123")
	assert.Equal(t, messages.WalletUpdated(types.Wallet{Symbol: "USDT", Address: "TXabc123"}), f.api.last(adminID))

	f.command(adminID, "/set_crypto BTC")
	assert.Equal(t, messages.AdminSetCryptoUsage(), f.api.last(adminID))

	f.command(adminID, "/list_wallets")
	listing := f.api.last(adminID)
	assert.Contains(t, listing, "newshop@okaxis")
	assert.Contains(t, listing, "TXabc123")

	f.press(buyerID, callbacks.PayMethod(types.MethodUPI, 2))
	require.NotEmpty(t, f.api.edits)
	upi := f.api.edits[len(f.api.edits)-1]
	assert.Contains(t, upi, "newshop@okaxis")
	assert.NotContains(t, upi, "shop@upi")

	f.press(buyerID, callbacks.PayMethod(types.MethodCrypto, 2))
	assert.Contains(t, f.api.edits[len(f.api.edits)-1], "TXabc123")

	f.command(buyerID, "/set_upi thief@upi")
	assert.Equal(t, messages.ErrorUnknownCommand(), f.api.last(buyerID))
}

func TestAddSubRejectsOversizedGrant(t *testing.T) {
	f := newFixture(t, nil)

	f.command(adminID, "/addsub 42 200000")
	assert.Equal(t, messages.AdminAddSubTooLong(subscription.MaxGrantDays), f.api.last(adminID))

	u, err := f.svc.Subscription(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Nil(t, u, "nothing was granted")
}
