package config

import (
	"os"
	"testing"
	"time"
)

func TestAnomalyConfig_Defaults(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Anomaly.AccountAttemptThreshold != 5 {
		t.Errorf("AccountAttemptThreshold: got %d, want 5", cfg.Anomaly.AccountAttemptThreshold)
	}
	if cfg.Anomaly.OriginAttemptThreshold != 100 {
		t.Errorf("OriginAttemptThreshold: got %d, want 100", cfg.Anomaly.OriginAttemptThreshold)
	}
	if cfg.Anomaly.AccountWindow != 15*time.Minute {
		t.Errorf("AccountWindow: got %v, want 15m", cfg.Anomaly.AccountWindow)
	}
	if cfg.Anomaly.OriginWindow != 15*time.Minute {
		t.Errorf("OriginWindow: got %v, want 15m", cfg.Anomaly.OriginWindow)
	}
}

func TestAnomalyConfig_CustomValues(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ACCOUNT_ATTEMPT_THRESHOLD", "3")
	os.Setenv("ORIGIN_ATTEMPT_THRESHOLD", "50")
	os.Setenv("ACCOUNT_ATTEMPT_WINDOW", "5m")
	os.Setenv("ORIGIN_ATTEMPT_WINDOW", "30m")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Anomaly.AccountAttemptThreshold != 3 {
		t.Errorf("AccountAttemptThreshold: got %d, want 3", cfg.Anomaly.AccountAttemptThreshold)
	}
	if cfg.Anomaly.OriginAttemptThreshold != 50 {
		t.Errorf("OriginAttemptThreshold: got %d, want 50", cfg.Anomaly.OriginAttemptThreshold)
	}
	if cfg.Anomaly.AccountWindow != 5*time.Minute {
		t.Errorf("AccountWindow: got %v, want 5m", cfg.Anomaly.AccountWindow)
	}
	if cfg.Anomaly.OriginWindow != 30*time.Minute {
		t.Errorf("OriginWindow: got %v, want 30m", cfg.Anomaly.OriginWindow)
	}
}

func TestAnomalyConfig_RejectsZeroThreshold(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ACCOUNT_ATTEMPT_THRESHOLD", "0")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error, want threshold validation error")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error, want missing JWT_SECRET error")
	}
}

func TestLoad_RejectsShortJWTSecretInProduction(t *testing.T) {
	os.Setenv("JWT_SECRET", "short-secret-16ch")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error, want weak secret error")
	}
}
