package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInitWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { Init(false) })

	InitWriter(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("run_id", "r1").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "run_id=r1")

	buf.Reset()
	InitWriter(&buf, true)
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
