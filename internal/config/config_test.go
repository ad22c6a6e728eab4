package config

import "testing"

func TestValidate_DefaultsAreDevelopmentSafe(t *testing.T) {
	cfg := &Config{
		Environment:          "development",
		PingConcurrencyLimit: 50,
		PingTimeout:          1,
		AuthSecret:           "short",
		AdminPassword:        "changeme",
		CORSOrigins:          []string{"http://localhost:3000"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error in development: %v", err)
	}
}

func TestValidate_ProductionRejectsInsecureDefaults(t *testing.T) {
	cfg := &Config{
		Environment:          "production",
		PingConcurrencyLimit: 50,
		PingTimeout:          1,
		AuthSecret:           "short",
		AdminPassword:        "changeme",
		CORSOrigins:          []string{"https://dashboard.example.com"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short auth secret in production")
	}

	cfg.AuthSecret = "this-is-a-sufficiently-long-secret-value"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default admin password in production")
	}

	cfg.AdminPassword = "a-real-password"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsMissingCORSOrigins(t *testing.T) {
	cfg := &Config{
		Environment:          "development",
		PingConcurrencyLimit: 50,
		PingTimeout:          1,
		AuthSecret:           "short",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing CORS origins")
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a, b ,c,, d", ",")
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGetEnvDuration_AcceptsSecondsAndGoDuration(t *testing.T) {
	t.Setenv("PROBE_TEST_TIMEOUT", "2.5")
	if got := getEnvDuration("PROBE_TEST_TIMEOUT", 0); got.Seconds() != 2.5 {
		t.Errorf("got %v, want 2.5s", got)
	}

	t.Setenv("PROBE_TEST_TIMEOUT", "500ms")
	if got := getEnvDuration("PROBE_TEST_TIMEOUT", 0); got.String() != "500ms" {
		t.Errorf("got %v, want 500ms", got)
	}
}
