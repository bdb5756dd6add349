package utilities

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// IDConfig selects how record identifiers are generated (ID_* env vars).
type IDConfig struct {
	Strategy      string `env:"STRATEGY" envDefault:"uuid"`
	SnowflakeNode int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`
}

// NewUUID generates a random (version 4) UUID string.
func NewUUID() string {
	return uuid.NewString()
}

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewIDGenerator returns a generator for the configured strategy.
// Supported strategies are "uuid", "ksuid" and "snowflake".
func NewIDGenerator(cfg IDConfig) (func() string, error) {
	switch cfg.Strategy {
	case "", "uuid":
		return NewUUID, nil
	case "ksuid":
		return NewKSUID, nil
	case "snowflake":
		node, err := snowflake.NewNode(cfg.SnowflakeNode)
		if err != nil {
			return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
		}
		return func() string { return node.Generate().String() }, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", cfg.Strategy)
	}
}
