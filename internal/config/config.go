package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything loaded from the environment at startup.
type Config struct {
	TelegramToken  string
	AllowedUserID  int64 // zero means "allow anyone", for local testing only
	DBPath         string
	ListenAddr     string
	Timezone       *time.Location
	GmailUserID    string
	GmailTokenJSON string
	AllowedSenders []string
	TrackedLabels  []string
}

const (
	defaultDBPath   = "bot.db"
	defaultListen   = ":5001"
	defaultTimezone = "Asia/Singapore"
)

// Load reads .env (if present) and the process environment.
func Load(log *slog.Logger) (Config, error) {
	_ = godotenv.Load()

	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is not set")
	}

	var userID int64
	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_USER_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("TELEGRAM_USER_ID: %w", err)
		}
		userID = id
	}

	tzName := os.Getenv("APP_TIMEZONE")
	if tzName == "" {
		tzName = defaultTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("APP_TIMEZONE %q: %w", tzName, err)
	}

	senders := ParseAllowedSenders(os.Getenv("ALLOWED_SENDER_EMAILS"), log)
	if len(senders) == 0 {
		if legacy := os.Getenv("TARGET_SENDER_EMAIL"); legacy != "" {
			log.Warn("TARGET_SENDER_EMAIL is deprecated, use ALLOWED_SENDER_EMAILS")
			senders = ParseAllowedSenders(legacy, log)
		}
	}
	if len(senders) == 0 {
		return Config{}, errors.New("no allowed sender emails configured")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	listen := os.Getenv("LISTEN_ADDR")
	if listen == "" {
		listen = defaultListen
	}
	gmailUser := os.Getenv("GMAIL_USER_ID")
	if gmailUser == "" {
		gmailUser = "me"
	}

	labels := splitList(os.Getenv("TRACKED_LABELS"))
	if len(labels) == 0 {
		labels = []string{"INBOX"}
	}

	return Config{
		TelegramToken:  token,
		AllowedUserID:  userID,
		DBPath:         dbPath,
		ListenAddr:     listen,
		Timezone:       loc,
		GmailUserID:    gmailUser,
		GmailTokenJSON: os.Getenv("GMAIL_OAUTH_TOKEN_JSON"),
		AllowedSenders: senders,
		TrackedLabels:  labels,
	}, nil
}

// ParseAllowedSenders cleans a newline-delimited allowlist: one address
// per line, lowercased, deduplicated. Lines that do not look like an
// address are logged and skipped rather than failing the whole load.
func ParseAllowedSenders(raw string, log *slog.Logger) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var out []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		email := strings.ToLower(strings.TrimSpace(line))
		if email == "" {
			continue
		}
		if !strings.Contains(email, "@") || strings.Contains(email, " ") {
			log.Warn("ignoring invalid sender address", "line", line)
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
