package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/persist"
)

type stubConfig struct {
	cfg domain.Config
	err error
}

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

type stubUsage struct {
	stats domain.StorageStats
}

func (s stubUsage) UpdateStorageStats() domain.StorageStats { return s.stats }
func (s stubUsage) Preferences() domain.StoragePreferences {
	return domain.DefaultStoragePreferences()
}

func statusOf(report domain.HealthReport, name string) domain.HealthStatus {
	for _, c := range report.Checks {
		if c.Name == name {
			return c.Status
		}
	}
	return ""
}

func TestRunReportsChecks(t *testing.T) {
	t.Setenv("ALLE_DOCTOR_TOKEN", "")
	svc := &Service{
		ConfigProvider: stubConfig{cfg: domain.Config{
			ConfigFormatVersion: "1",
			API:                 domain.APISettings{BaseURL: "https://api.example.com", TokenEnvVar: "ALLE_DOCTOR_TOKEN"},
		}},
		Store: persist.NewMemoryStore(),
		Usage: stubUsage{stats: domain.NewStorageStats(90, 100)},
	}

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := map[string]domain.HealthStatus{
		"Config file":       domain.HealthOK,
		"Config validation": domain.HealthOK,
		"Storage backend":   domain.HealthOK,
		"Storage usage":     domain.HealthWarn,
		"API":               domain.HealthWarn,
	}
	for name, status := range want {
		if got := statusOf(report, name); got != status {
			t.Errorf("%s = %q, want %q", name, got, status)
		}
	}
	if report.HasErrors() {
		t.Error("report should have no errors")
	}
}

func TestRunFailsOnConfigError(t *testing.T) {
	svc := &Service{ConfigProvider: stubConfig{err: errors.New("permission denied")}}

	report, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !report.HasErrors() {
		t.Error("expected failing check")
	}
}
