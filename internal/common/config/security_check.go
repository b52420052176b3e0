package config

import (
	"strings"

	"go.uber.org/zap"
)

// ProductionWarnings returns a list of insecure settings that should not
// survive into a production deployment.
func (c *Config) ProductionWarnings() []string {
	var warnings []string

	if c.JWTSecret == "" {
		warnings = append(warnings, "jwt_secret is empty, elevation tokens will not be issued")
	}
	if c.CORSAllowedOrigins == "*" {
		warnings = append(warnings, "cors_allowed_origins is a wildcard")
	}
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		warnings = append(warnings, "database connection has sslmode=disable")
	}
	if strings.HasPrefix(c.RedisURL, "redis://") && !strings.Contains(c.RedisURL, "@") {
		warnings = append(warnings, "redis connection has no credentials")
	}

	return warnings
}

// LogSecurityWarnings logs actionable security warnings when running in
// production with insecure defaults. Call this at service startup after
// configuration is loaded.
func (c *Config) LogSecurityWarnings(log *zap.Logger) {
	if !c.IsProduction() {
		return
	}

	warnings := c.ProductionWarnings()

	for _, w := range warnings {
		log.Warn("SECURITY", zap.String("warning", w))
	}

	if len(warnings) > 0 {
		log.Warn("SECURITY: production deployment has insecure configuration",
			zap.Int("warning_count", len(warnings)))
	}
}
