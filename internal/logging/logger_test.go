package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitSetsLevelAndContextFallback(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		zerolog.DefaultContextLogger = nil
	})

	Init("test", "prod", "warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger := zerolog.Ctx(context.Background())
	assert.NotEqual(t, zerolog.Disabled, logger.GetLevel())
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		zerolog.DefaultContextLogger = nil
	})

	Init("test", "dev", "loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
