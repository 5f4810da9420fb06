package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validToken = "123456789:AAH3kY1lZq_ExampleTokenValue-abcdefghij"

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		envDatabaseURL, envPostgresHost, envPostgresPort, envPostgresDB, envPostgresUser, envPostgresPassword,
		envRedisHost, envRedisPort, envRedisDB, envCryptoWallets, envCommission, envDefaultPlanID,
		envPlansFile, envSweepInterval, envReminderDays, envHTTPAddr, envWebhookURL, envChannelTopic,
	} {
		t.Setenv(name, "")
	}
	t.Setenv(envBotToken, validToken)
	t.Setenv(envAdminIDs, "1001")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Fatalf("expected 5m sweep interval, got %s", cfg.SweepInterval)
	}
	if cfg.ReminderWindow != 72*time.Hour {
		t.Fatalf("expected 3 day reminder window, got %s", cfg.ReminderWindow)
	}
	if cfg.DefaultPlanID != 2 {
		t.Fatalf("expected default plan 2, got %d", cfg.DefaultPlanID)
	}
	if cfg.CommissionRate.String() != "0.1" {
		t.Fatalf("expected commission 0.1, got %s", cfg.CommissionRate)
	}
	if cfg.ChannelTopic != "VIP" {
		t.Fatalf("expected VIP topic, got %q", cfg.ChannelTopic)
	}
	if len(cfg.Plans) != 4 {
		t.Fatalf("expected 4 default plans, got %d", len(cfg.Plans))
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.RedisAddr)
	}
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres://vip_bot:@localhost:5432/vip_bot") {
		t.Fatalf("unexpected dsn %q", cfg.DatabaseURL)
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(envBotToken, "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), envBotToken) {
		t.Fatalf("expected error naming %s, got %v", envBotToken, err)
	}
}

func TestLoadRejectsMalformedBotToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(envBotToken, "YOUR_BOT_TOKEN_FROM_BOTFATHER")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("expected malformed token error, got %v", err)
	}
}

func TestLoadRequiresAdminIDs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(envAdminIDs, "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), envAdminIDs) {
		t.Fatalf("expected error naming %s, got %v", envAdminIDs, err)
	}

	t.Setenv(envAdminIDs, "12,abc")
	_, err = Load()
	if err == nil || !strings.Contains(err.Error(), `"abc"`) {
		t.Fatalf("expected invalid admin id error, got %v", err)
	}
}

func TestParseAdminIDs(t *testing.T) {
	ids, err := ParseAdminIDs("1, 2;3 2\n4")
	if err != nil {
		t.Fatalf("ParseAdminIDs returned error: %v", err)
	}
	want := []int64{1, 2, 3, 4}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestLoadWalletsAndOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(envCryptoWallets, "usdt-trc20=TXabc, BTC=bc1qxyz")
	t.Setenv(envCommission, "15%")
	t.Setenv(envSweepInterval, "90s")
	t.Setenv(envDatabaseURL, "postgres://u:p@db:5432/app")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.CryptoWallets) != 2 || cfg.CryptoWallets[0].Symbol != "USDT-TRC20" || cfg.CryptoWallets[1].Address != "bc1qxyz" {
		t.Fatalf("unexpected wallets %+v", cfg.CryptoWallets)
	}
	if cfg.CommissionRate.String() != "0.15" {
		t.Fatalf("expected 0.15, got %s", cfg.CommissionRate)
	}
	if cfg.SweepInterval != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.SweepInterval)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/app" {
		t.Fatalf("DATABASE_URL should win, got %q", cfg.DatabaseURL)
	}

	t.Setenv(envCryptoWallets, "BTC")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for wallet without address")
	}
}

func TestLoadPlansFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "plans.yaml")
	data := `
plans:
  - id: 10
    name: Trial
    duration_days: 3
    price: 19
    features: ["Channel Access"]
  - id: 11
    name: Old
    duration_days: 30
    price: 199
    active: false
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envPlansFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Plans) != 2 || !cfg.Plans[0].Active || cfg.Plans[1].Active {
		t.Fatalf("unexpected plans %+v", cfg.Plans)
	}
}

func TestParsePlansValidates(t *testing.T) {
	bad := []string{
		"plans: []",
		"plans: [{id: 0, name: x, duration_days: 1, price: 1}]",
		"plans: [{id: 1, name: x, duration_days: 0, price: 1}]",
		"plans: [{id: 1, name: x, duration_days: 1, price: 1}, {id: 1, name: y, duration_days: 1, price: 1}]",
	}
	for _, in := range bad {
		if _, err := ParsePlans([]byte(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestLoadEnvFilesKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	if err := os.WriteFile(path, []byte("VIP_TEST_A=file\nVIP_TEST_B=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VIP_TEST_A", "env")
	t.Setenv("VIP_TEST_B", "")
	os.Unsetenv("VIP_TEST_B")

	if err := LoadEnvFiles("", filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFiles returned error: %v", err)
	}
	if got := os.Getenv("VIP_TEST_A"); got != "env" {
		t.Fatalf("existing variable overwritten: %q", got)
	}
	if got := os.Getenv("VIP_TEST_B"); got != "file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
