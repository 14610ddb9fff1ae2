package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	LevelPolicyAny = "any"
	LevelPolicyAll = "all"

	CreatorNotifyEachStep = "each_step"
	CreatorNotifyTerminal = "terminal"

	RetentionRetain = "retain"
	RetentionPurge  = "purge"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	Environment        string
	LogLevel           string
	EmailFrom          string
	EmailEnabled       bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	RunMigrations      bool
	RunSeed            bool
	MaxBodyBytes       int64
	MaxAttachmentBytes int64
	RateLimitPerMinute int
	DecisionRateBurst  int
	MetricsEnabled     bool
	Approval           ApprovalConfig
	Payroll            PayrollConfig
	Attendance         AttendanceConfig
}

type ApprovalConfig struct {
	LevelPolicy     string
	CreatorNotify   string
	TargetRetention string
}

// PayrollConfig holds the statutory rates used by payroll computation.
// Band limits are cumulative upper bounds of monthly gross pay.
type PayrollConfig struct {
	BandOneLimit      decimal.Decimal
	BandOneRate       decimal.Decimal
	BandTwoLimit      decimal.Decimal
	BandTwoRate       decimal.Decimal
	TopRate           decimal.Decimal
	NSSFRate          decimal.Decimal
	NSSFCap           decimal.Decimal
	SHIFRate          decimal.Decimal
	HousingLevyRate   decimal.Decimal
	OvertimeHourlyPay decimal.Decimal
}

type AttendanceConfig struct {
	OfficeStart string
	OfficeEnd   string
	Grace       time.Duration
	Timezone    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EmailFrom:          getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", true),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MaxAttachmentBytes: int64(getEnvInt("MAX_ATTACHMENT_BYTES", 5*1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		DecisionRateBurst:  getEnvInt("DECISION_RATE_BURST", 5),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		Approval: ApprovalConfig{
			LevelPolicy:     strings.ToLower(getEnv("APPROVAL_LEVEL_POLICY", LevelPolicyAny)),
			CreatorNotify:   strings.ToLower(getEnv("APPROVAL_CREATOR_NOTIFY", CreatorNotifyEachStep)),
			TargetRetention: strings.ToLower(getEnv("APPROVAL_TARGET_RETENTION", RetentionRetain)),
		},
		Payroll: PayrollConfig{
			BandOneLimit:      getEnvDecimal("PAYROLL_BAND_ONE_LIMIT", "24000"),
			BandOneRate:       getEnvDecimal("PAYROLL_BAND_ONE_RATE", "0.10"),
			BandTwoLimit:      getEnvDecimal("PAYROLL_BAND_TWO_LIMIT", "40667"),
			BandTwoRate:       getEnvDecimal("PAYROLL_BAND_TWO_RATE", "0.25"),
			TopRate:           getEnvDecimal("PAYROLL_TOP_RATE", "0.30"),
			NSSFRate:          getEnvDecimal("PAYROLL_NSSF_RATE", "0.06"),
			NSSFCap:           getEnvDecimal("PAYROLL_NSSF_CAP", "2160"),
			SHIFRate:          getEnvDecimal("PAYROLL_SHIF_RATE", "0.0275"),
			HousingLevyRate:   getEnvDecimal("PAYROLL_HOUSING_LEVY_RATE", "0.015"),
			OvertimeHourlyPay: getEnvDecimal("PAYROLL_OVERTIME_HOURLY_RATE", "150"),
		},
		Attendance: AttendanceConfig{
			OfficeStart: getEnv("OFFICE_START", "08:00"),
			OfficeEnd:   getEnv("OFFICE_END", "17:00"),
			Grace:       getEnvDuration("ATTENDANCE_GRACE", 10*time.Minute),
			Timezone:    getEnv("OFFICE_TIMEZONE", "Africa/Nairobi"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(fallback)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxAttachmentBytes < 1024 {
		return fmt.Errorf("MAX_ATTACHMENT_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DecisionRateBurst <= 0 {
		return fmt.Errorf("DECISION_RATE_BURST must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return c.validatePolicies()
}

func (c Config) validatePolicies() error {
	switch c.Approval.LevelPolicy {
	case LevelPolicyAny, LevelPolicyAll:
	default:
		return fmt.Errorf("APPROVAL_LEVEL_POLICY must be %q or %q", LevelPolicyAny, LevelPolicyAll)
	}
	switch c.Approval.CreatorNotify {
	case CreatorNotifyEachStep, CreatorNotifyTerminal:
	default:
		return fmt.Errorf("APPROVAL_CREATOR_NOTIFY must be %q or %q", CreatorNotifyEachStep, CreatorNotifyTerminal)
	}
	switch c.Approval.TargetRetention {
	case RetentionRetain, RetentionPurge:
	default:
		return fmt.Errorf("APPROVAL_TARGET_RETENTION must be %q or %q", RetentionRetain, RetentionPurge)
	}
	if c.Payroll.BandTwoLimit.LessThanOrEqual(c.Payroll.BandOneLimit) {
		return fmt.Errorf("PAYROLL_BAND_TWO_LIMIT must exceed PAYROLL_BAND_ONE_LIMIT")
	}
	if _, err := time.Parse("15:04", c.Attendance.OfficeStart); err != nil {
		return fmt.Errorf("OFFICE_START must use HH:MM")
	}
	if _, err := time.Parse("15:04", c.Attendance.OfficeEnd); err != nil {
		return fmt.Errorf("OFFICE_END must use HH:MM")
	}
	if _, err := time.LoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("OFFICE_TIMEZONE is not a known location")
	}
	return nil
}
