package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BatmanBruc/vip-access-bot/internal/pricing"
	"github.com/BatmanBruc/vip-access-bot/types"
)

// Wallet is a crypto receiving address shown to users paying with crypto.
type Wallet = types.Wallet

// Config captures everything the bot needs at startup.
type Config struct {
	// BotToken is the credential issued by BotFather.
	BotToken string

	// AdminIDs are the Telegram user ids allowed to run admin commands and
	// receive payment notifications.
	AdminIDs []int64

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// ChannelInviteLink is sent on approval when no channel for ChannelTopic is registered.
	ChannelInviteLink string
	ChannelTopic      string

	UPIID           string
	UPIPayeeName    string
	PhonePeNumber   string
	BankDetails     string
	CryptoWallets   []Wallet
	SupportUsername string

	CommissionRate decimal.Decimal
	DefaultPlanID  int
	Plans          []types.Plan

	SweepInterval  time.Duration
	ReminderWindow time.Duration

	// HTTPAddr enables the health endpoint (and webhook) when non-empty.
	HTTPAddr      string
	WebhookURL    string
	WebhookSecret string

	LogLevel string
}

const (
	envBotToken          = "BOT_TOKEN"
	envAdminIDs          = "ADMIN_IDS"
	envDatabaseURL       = "DATABASE_URL"
	envPostgresHost      = "POSTGRES_HOST"
	envPostgresPort      = "POSTGRES_PORT"
	envPostgresDB        = "POSTGRES_DB"
	envPostgresUser      = "POSTGRES_USER"
	envPostgresPassword  = "POSTGRES_PASSWORD"
	envRedisHost         = "REDIS_HOST"
	envRedisPort         = "REDIS_PORT"
	envRedisPassword     = "REDIS_PASSWORD"
	envRedisDB           = "REDIS_DB"
	envChannelInviteLink = "CHANNEL_INVITE_LINK"
	envChannelTopic      = "CHANNEL_TOPIC"
	envUPIID             = "UPI_ID"
	envUPIPayeeName      = "UPI_PAYEE_NAME"
	envPhonePeNumber     = "PHONEPE_NUMBER"
	envBankDetails       = "BANK_DETAILS"
	envCryptoWallets     = "CRYPTO_WALLETS"
	envSupportUsername   = "SUPPORT_USERNAME"
	envCommission        = "REFERRAL_COMMISSION"
	envDefaultPlanID     = "DEFAULT_PLAN_ID"
	envPlansFile         = "PLANS_FILE"
	envSweepInterval     = "SWEEP_INTERVAL"
	envReminderDays      = "REMINDER_DAYS"
	envHTTPAddr          = "HTTP_ADDR"
	envWebhookURL        = "WEBHOOK_URL"
	envWebhookSecret     = "WEBHOOK_SECRET"
	envLogLevel          = "LOG_LEVEL"

	defaultChannelTopic  = "VIP"
	defaultCommission    = "0.10"
	defaultDefaultPlanID = 2
	defaultSweepInterval = 5 * time.Minute
	defaultReminderDays  = 3
	defaultRedisPrefix   = "vip_bot"
)

var botTokenPattern = regexp.MustCompile(`^[0-9]{5,}:[A-Za-z0-9_-]{30,}$`)

// Load reads configuration from the environment and validates it. The
// returned error names the offending variable.
func Load() (Config, error) {
	cfg := Config{
		BotToken:          strings.TrimSpace(os.Getenv(envBotToken)),
		DatabaseURL:       strings.TrimSpace(os.Getenv(envDatabaseURL)),
		RedisPassword:     os.Getenv(envRedisPassword),
		RedisPrefix:       defaultRedisPrefix,
		ChannelInviteLink: strings.TrimSpace(os.Getenv(envChannelInviteLink)),
		ChannelTopic:      firstNonEmpty(os.Getenv(envChannelTopic), defaultChannelTopic),
		UPIID:             strings.TrimSpace(os.Getenv(envUPIID)),
		UPIPayeeName:      strings.TrimSpace(os.Getenv(envUPIPayeeName)),
		PhonePeNumber:     strings.TrimSpace(os.Getenv(envPhonePeNumber)),
		BankDetails:       strings.ReplaceAll(strings.TrimSpace(os.Getenv(envBankDetails)), `\n`, "\n"),
		SupportUsername:   strings.TrimPrefix(strings.TrimSpace(os.Getenv(envSupportUsername)), "@"),
		HTTPAddr:          strings.TrimSpace(os.Getenv(envHTTPAddr)),
		WebhookURL:        strings.TrimSpace(os.Getenv(envWebhookURL)),
		WebhookSecret:     strings.TrimSpace(os.Getenv(envWebhookSecret)),
		LogLevel:          strings.TrimSpace(os.Getenv(envLogLevel)),
	}

	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("%s is required", envBotToken)
	}
	if !botTokenPattern.MatchString(cfg.BotToken) {
		return Config{}, fmt.Errorf("%s is malformed: expected <bot id>:<secret>", envBotToken)
	}

	admins, err := ParseAdminIDs(os.Getenv(envAdminIDs))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", envAdminIDs, err)
	}
	if len(admins) == 0 {
		return Config{}, fmt.Errorf("%s is required", envAdminIDs)
	}
	cfg.AdminIDs = admins

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = postgresDSNFromParts()
	}

	cfg.RedisAddr = net.JoinHostPort(
		firstNonEmpty(os.Getenv(envRedisHost), "localhost"),
		firstNonEmpty(os.Getenv(envRedisPort), "6379"),
	)
	if cfg.RedisDB, err = intFromEnv(envRedisDB, 0); err != nil {
		return Config{}, err
	}

	if cfg.CryptoWallets, err = parseWallets(os.Getenv(envCryptoWallets)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", envCryptoWallets, err)
	}

	if cfg.CommissionRate, err = pricing.ParseRate(firstNonEmpty(os.Getenv(envCommission), defaultCommission)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", envCommission, err)
	}

	if cfg.DefaultPlanID, err = intFromEnv(envDefaultPlanID, defaultDefaultPlanID); err != nil {
		return Config{}, err
	}

	if cfg.SweepInterval, err = durationFromEnv(envSweepInterval, defaultSweepInterval); err != nil {
		return Config{}, err
	}
	reminderDays, err := intFromEnv(envReminderDays, defaultReminderDays)
	if err != nil {
		return Config{}, err
	}
	if reminderDays < 0 {
		return Config{}, fmt.Errorf("%s must not be negative", envReminderDays)
	}
	cfg.ReminderWindow = time.Duration(reminderDays) * 24 * time.Hour

	if path := strings.TrimSpace(os.Getenv(envPlansFile)); path != "" {
		if cfg.Plans, err = LoadPlans(path); err != nil {
			return Config{}, fmt.Errorf("%s: %w", envPlansFile, err)
		}
	} else {
		cfg.Plans = DefaultPlans()
	}

	if cfg.WebhookURL != "" && cfg.HTTPAddr == "" {
		return Config{}, fmt.Errorf("%s requires %s", envWebhookURL, envHTTPAddr)
	}

	return cfg, nil
}

// ParseAdminIDs accepts ids separated by commas, semicolons or whitespace.
func ParseAdminIDs(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	ids := make([]int64, 0, len(fields))
	seen := make(map[int64]bool, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid admin id %q", f)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func postgresDSNFromParts() string {
	host := firstNonEmpty(os.Getenv(envPostgresHost), "localhost")
	port := firstNonEmpty(os.Getenv(envPostgresPort), "5432")
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(firstNonEmpty(os.Getenv(envPostgresUser), "vip_bot"), os.Getenv(envPostgresPassword)),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + firstNonEmpty(os.Getenv(envPostgresDB), "vip_bot"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// parseWallets reads "USDT-TRC20=Txxxx,BTC=bc1xxx" keeping the given order.
func parseWallets(raw string) ([]Wallet, error) {
	var out []Wallet
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, addr, ok := strings.Cut(part, "=")
		sym, addr = strings.TrimSpace(sym), strings.TrimSpace(addr)
		if !ok || sym == "" || addr == "" {
			return nil, fmt.Errorf("invalid wallet entry %q, want SYMBOL=address", part)
		}
		out = append(out, Wallet{Symbol: strings.ToUpper(sym), Address: addr})
	}
	return out, nil
}

func intFromEnv(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func durationFromEnv(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 5m, got %q", name, raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
