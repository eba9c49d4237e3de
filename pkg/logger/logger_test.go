package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel_Aliases(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"release": zerolog.InfoLevel,
		"test":    zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		SetLevel(in)
		assert.Equal(t, want, Log.GetLevel(), in)
	}
}

func TestConfigure_SharesGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Configure("info", "console") })

	Configure("warn", "json")
	assert.Equal(t, zerolog.WarnLevel, Log.GetLevel())
	assert.Equal(t, zerolog.WarnLevel, log.Logger.GetLevel())
}
