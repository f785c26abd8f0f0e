package matchlog

import (
	"fmt"
	"os"
	"strings"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

func modeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("MATCHLOG_MODE")))
	switch raw {
	case "", ModeSQLite, "local":
		return ModeSQLite
	case ModePostgres, "postgresql", "db":
		return ModePostgres
	case ModeMemory, "mem":
		return ModeMemory
	default:
		return raw
	}
}

// NewStoreFromEnv picks a backend from MATCHLOG_MODE. Default is sqlite in
// the user config dir so the server works out of the box.
func NewStoreFromEnv() (Store, string, error) {
	mode := modeFromEnv()

	switch mode {
	case ModeSQLite:
		return NewSQLiteStoreFromEnv()
	case ModePostgres:
		return NewPostgresStoreFromEnv()
	case ModeMemory:
		return NewMemoryStore(), ModeMemory, nil
	default:
		return nil, mode, fmt.Errorf("invalid MATCHLOG_MODE %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}
