package logging_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"taskflow/internal/logging"
)

func TestDisabledLoggerEmitsNothing(t *testing.T) {
	var buf bytes.Buffer
	log := logging.Disabled()
	log.Info().Msg("should never appear")
	assert.Empty(t, buf.String())
}

func TestNewLoggerWritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, zerolog.InfoLevel)

	log.Debug().Msg("filtered out below info")
	assert.Empty(t, buf.String())

	log.Info().Msg("recorded")
	assert.Contains(t, buf.String(), "recorded")
}

func TestNamedAddsComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, zerolog.InfoLevel).Named("engine")

	log.Info().Msg("tagged")
	assert.Contains(t, buf.String(), "engine")
}
