package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// REST data service (PostgREST dialect)
	RESTBaseURL string
	RESTAPIKey  string
	RESTTimeout time.Duration

	// SQLite
	SQLiteDBPath string

	// Messaging (Twilio WhatsApp)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// AI classifier
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	// Reminder scheduler
	Timezone     string
	ReminderHour int
	SummaryDay   time.Weekday
	SummaryHour  int
	SummaryPhone string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		RESTBaseURL: getEnv("REST_BASE_URL", ""),
		RESTAPIKey:  getEnv("REST_API_KEY", ""),
		RESTTimeout: getEnvDuration("REST_TIMEOUT", 30*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastobot.db"),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		AITimeout:    getEnvDuration("AI_TIMEOUT", 30*time.Second),

		Timezone:     getEnv("TZ", "America/Mexico_City"),
		ReminderHour: getEnvInt("REMINDER_HOUR", 9),
		SummaryDay:   time.Weekday(getEnvInt("SUMMARY_WEEKDAY", int(time.Sunday))),
		SummaryHour:  getEnvInt("SUMMARY_HOUR", 10),
		SummaryPhone: getEnv("SUMMARY_PHONE", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "rest", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "rest" {
		if c.RESTBaseURL == "" {
			errors = append(errors, "REST base URL cannot be empty when using rest backend")
		}
		if c.RESTAPIKey == "" {
			errors = append(errors, "REST API key cannot be empty when using rest backend")
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Twilio credentials come as a set. Missing all three means outbound
	// messaging is disabled; a partial set is a misconfiguration.
	twilioSet := 0
	for _, v := range []string{c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromNumber} {
		if v != "" {
			twilioSet++
		}
	}
	if twilioSet != 0 && twilioSet != 3 {
		errors = append(errors, "TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set together")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		errors = append(errors, fmt.Sprintf("invalid reminder hour %d: must be between 0 and 23", c.ReminderHour))
	}
	if c.SummaryHour < 0 || c.SummaryHour > 23 {
		errors = append(errors, fmt.Sprintf("invalid summary hour %d: must be between 0 and 23", c.SummaryHour))
	}
	if c.SummaryDay < time.Sunday || c.SummaryDay > time.Saturday {
		errors = append(errors, fmt.Sprintf("invalid summary weekday %d: must be between 0 (Sunday) and 6 (Saturday)", c.SummaryDay))
	}

	if c.AITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at least 1 second", c.AITimeout))
	}
	if c.RESTTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid REST timeout %v: must be at least 1 second", c.RESTTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location resolves the scheduler timezone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MessagingEnabled reports whether outbound WhatsApp sending is configured.
func (c *Config) MessagingEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
