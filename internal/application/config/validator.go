package config

import (
	"strings"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/pkg/validation"
)

// Validate checks the `validate` tags on cfg and then the rules tags cannot
// express. Enum fields are compared case-insensitively, the same way the
// getters read them.
func Validate(cfg domain.Config) error {
	normalized := cfg
	normalized.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	normalized.Logging.Level = strings.ToLower(cfg.Logging.Level)
	normalized.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := validation.Struct(normalized); err != nil {
		return err
	}
	return cfg.ValidateConsistency()
}
