package doctor

import (
	"context"
	"fmt"
	"os"

	configapp "github.com/alle-ai/alle-go/internal/application/config"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

// UsageReader exposes storage usage for the diagnostics.
type UsageReader interface {
	UpdateStorageStats() domain.StorageStats
	Preferences() domain.StoragePreferences
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Store          ports.KVStore
	Usage          UsageReader
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded format v%s", cfg.ConfigFormatVersion)))

	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Config validation", err.Error()))
	} else {
		checks = append(checks, ok("Config validation", "passed"))
	}

	checks = append(checks, s.storageCheck(ctx, cfg))
	if s.Usage != nil {
		checks = append(checks, usageCheck(s.Usage.UpdateStorageStats(), s.Usage.Preferences()))
	}
	checks = append(checks, apiCheck(cfg.API))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) storageCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	if s.Store == nil {
		return warn("Storage backend", "store not initialized")
	}
	_, found, err := s.Store.Get(ctx, cfg.GetStorageKey())
	if err != nil {
		return fail("Storage backend", fmt.Sprintf("%s: %v", cfg.GetStorageBackend(), err))
	}
	if degraded, isDegraded := s.Store.(interface{ Degraded() bool }); isDegraded && degraded.Degraded() {
		return warn("Storage backend", "sqlite unavailable, using file fallback")
	}
	if !found {
		return ok("Storage backend", fmt.Sprintf("%s ready (no saved state yet)", cfg.GetStorageBackend()))
	}
	return ok("Storage backend", fmt.Sprintf("%s ready", cfg.GetStorageBackend()))
}

func usageCheck(stats domain.StorageStats, prefs domain.StoragePreferences) domain.HealthCheck {
	details := fmt.Sprintf("%s of %s (%s)", stats.UsedMB(), stats.TotalMB(), stats.PercentageString())
	if stats.ShouldWarn(prefs) {
		return warn("Storage usage", details+", above warning threshold")
	}
	return ok("Storage usage", details)
}

func apiCheck(api domain.APISettings) domain.HealthCheck {
	if api.BaseURL == "" {
		return warn("API", "api.base_url not set")
	}
	if api.TokenEnvVar != "" && os.Getenv(api.TokenEnvVar) == "" {
		return warn("API", fmt.Sprintf("%s missing", api.TokenEnvVar))
	}
	return ok("API", api.BaseURL)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
