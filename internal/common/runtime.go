package common

import (
	"os"
	"runtime/debug"
	"strconv"

	"github.com/rs/zerolog/log"
)

// InitRuntime tunes the Go runtime for a quote-serving workload. The engine
// leans on sync.Pool for graph snapshots and big.Int scratch values; a high
// GOGC keeps those pools warm while GOMEMLIMIT caps total growth.
// Environment variables GOGC and GOMEMLIMIT override the defaults.
func InitRuntime() {
	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(400)
	}
	if os.Getenv("GOMEMLIMIT") == "" {
		if raw := os.Getenv("ENGINE_MEM_LIMIT_MB"); raw != "" {
			if mb, err := strconv.Atoi(raw); err == nil && mb > 0 {
				debug.SetMemoryLimit(int64(mb) * 1024 * 1024)
			}
		}
	}
	log.Info().Msg("runtime tuning applied")
}
