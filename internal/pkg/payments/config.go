package payments

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/fanforge/creatorpay/internal/pkg/env"
)

const (
	defaultSignatureTolerance = 5 * time.Minute
	defaultCommissionRateBPS  = 2000 // 20% of the post-processor-fee amount
)

// Config carries the payment-ingestion settings, evaluated exactly once at
// startup. VerificationDisabled is the explicit non-production degraded mode
// that replaces any silent skip-if-no-secret behavior: it must be requested
// via WEBHOOK_VERIFICATION_DISABLED=true and is refused outside dev.
type Config struct {
	WebhookSecret        string
	SignatureTolerance   time.Duration
	VerificationDisabled bool
	CommissionRateBPS    int64
	ProcessorAPIBaseURL  string
	ProcessorAPIKey      string
}

var config *Config

// LoadConfig builds the payments configuration from the environment.
// Production with no signing secret fails closed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		WebhookSecret:       env.GetEnv("FANPAY_WEBHOOK_SECRET", ""),
		SignatureTolerance:  defaultSignatureTolerance,
		CommissionRateBPS:   defaultCommissionRateBPS,
		ProcessorAPIBaseURL: env.GetEnv("FANPAY_API_BASE_URL", "https://api.fanpay.io/v1"),
		ProcessorAPIKey:     env.GetEnv("FANPAY_API_KEY", ""),
	}

	if raw := env.GetEnv("FANPAY_SIGNATURE_TOLERANCE", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.New("FANPAY_SIGNATURE_TOLERANCE is not a valid duration")
		}
		cfg.SignatureTolerance = d
	}

	if raw := env.GetEnv("COMMISSION_RATE_BPS", ""); raw != "" {
		bps, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || bps < 0 || bps > 10000 {
			return nil, errors.New("COMMISSION_RATE_BPS must be an integer between 0 and 10000")
		}
		cfg.CommissionRateBPS = bps
	}

	if cfg.WebhookSecret == "" {
		if env.GetEnv("WEBHOOK_VERIFICATION_DISABLED", "false") != "true" {
			return nil, errors.New("FANPAY_WEBHOOK_SECRET is not configured; set it or explicitly set WEBHOOK_VERIFICATION_DISABLED=true in non-production")
		}
		if env.IsProd() {
			return nil, errors.New("webhook signature verification cannot be disabled in production")
		}
		cfg.VerificationDisabled = true
		log.Print("WARNING: webhook signature verification is DISABLED - events are NOT authenticated; never run this mode in production")
	}

	return cfg, nil
}

// SetConfig installs the active payments configuration.
func SetConfig(cfg *Config) {
	config = cfg
}

// GetConfig returns the configuration installed at startup.
func GetConfig() *Config {
	if config == nil {
		panic("payments config not loaded; call payments.LoadConfig at startup")
	}
	return config
}
