package subscription

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/types"
)

const (
	settingUPIID    = "upi_id"
	settingUPIPayee = "upi_payee_name"
)

var (
	upiIDPattern        = regexp.MustCompile(`^[A-Za-z0-9._-]{2,256}@[A-Za-z][A-Za-z0-9]{1,63}$`)
	walletSymbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)
)

// PaymentSettings returns the receiving details shown to payers. Values set
// by admins win over the configured ones; wallets merge by symbol.
func (s *Service) PaymentSettings(ctx context.Context) (types.PaymentSettings, error) {
	out := types.PaymentSettings{
		UPIID:        s.payment.UPIID,
		UPIPayeeName: s.payment.UPIPayeeName,
	}
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		return s.payment, fmt.Errorf("load payment settings: %w", err)
	}
	if v := settings[settingUPIID]; v != "" {
		out.UPIID = v
		out.UPIPayeeName = settings[settingUPIPayee]
	}

	stored, err := s.store.ListWallets(ctx)
	if err != nil {
		return s.payment, fmt.Errorf("load wallets: %w", err)
	}
	override := make(map[string]string, len(stored))
	for _, w := range stored {
		override[w.Symbol] = w.Address
	}
	for _, w := range s.payment.Wallets {
		if addr, ok := override[w.Symbol]; ok {
			w.Address = addr
			delete(override, w.Symbol)
		}
		out.Wallets = append(out.Wallets, w)
	}
	for _, w := range stored {
		if _, ok := override[w.Symbol]; ok {
			out.Wallets = append(out.Wallets, w)
		}
	}
	return out, nil
}

// SetUPI replaces the UPI id (and payee name) payers are asked to pay.
func (s *Service) SetUPI(ctx context.Context, adminID int64, upiID, payee string) error {
	upiID = strings.TrimSpace(upiID)
	payee = strings.TrimSpace(payee)
	if !upiIDPattern.MatchString(upiID) {
		return types.ErrInvalidUPI
	}
	now := s.now()
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		if err := q.SetSetting(ctx, settingUPIID, upiID, now); err != nil {
			return err
		}
		if err := q.SetSetting(ctx, settingUPIPayee, payee, now); err != nil {
			return err
		}
		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    adminID,
			Action:    "upi_updated",
			Details:   fmt.Sprintf("upi=%s payee=%q", upiID, payee),
			CreatedAt: now,
		})
	})
	if err != nil {
		return fmt.Errorf("set upi: %w", err)
	}
	s.log.Info("upi updated", zap.Int64("admin_id", adminID), zap.String("upi_id", upiID))
	return nil
}

// SetWallet stores the crypto address for symbol, replacing any previous one.
func (s *Service) SetWallet(ctx context.Context, adminID int64, symbol, address string) (types.Wallet, error) {
	w := types.Wallet{
		Symbol:  strings.ToUpper(strings.TrimSpace(symbol)),
		Address: strings.TrimSpace(address),
	}
	if !walletSymbolPattern.MatchString(w.Symbol) || w.Address == "" || strings.ContainsAny(w.Address, " \t\n") {
		return types.Wallet{}, types.ErrInvalidWallet
	}
	now := s.now()
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		if err := q.SetWallet(ctx, w, now); err != nil {
			return err
		}
		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    adminID,
			Action:    "wallet_updated",
			Details:   fmt.Sprintf("symbol=%s address=%s", w.Symbol, w.Address),
			CreatedAt: now,
		})
	})
	if err != nil {
		return types.Wallet{}, fmt.Errorf("set wallet %s: %w", w.Symbol, err)
	}
	s.log.Info("wallet updated", zap.Int64("admin_id", adminID), zap.String("symbol", w.Symbol))
	return w, nil
}
