// Package buildinfo reports link-time build metadata.
package buildinfo

import "go.uber.org/zap"

const notAvailable = "N/A"

// Log writes the build version, date and commit, substituting "N/A" for
// values the linker did not set.
func Log(logger *zap.SugaredLogger, version, date, commit string) {
	logger.Infow("build info",
		"version", orNA(version),
		"date", orNA(date),
		"commit", orNA(commit),
	)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
