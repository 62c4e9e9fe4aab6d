package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault_FallsBackWhenUnset(t *testing.T) {
	t.Setenv("PROVER_TEST_UNSET_VAR", "")
	assert.Equal(t, "fallback", GetEnvOrDefault("PROVER_TEST_UNSET_VAR", "fallback"))
}

func TestGetEnvOrDefault_UsesSetValue(t *testing.T) {
	t.Setenv("PROVER_TEST_SET_VAR", "custom")
	assert.Equal(t, "custom", GetEnvOrDefault("PROVER_TEST_SET_VAR", "fallback"))
}

func TestGetEnvIntOrDefault_ParsesValidInt(t *testing.T) {
	t.Setenv("PROVER_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvIntOrDefault("PROVER_TEST_INT", 7))
}

func TestGetEnvIntOrDefault_FallsBackOnInvalidInt(t *testing.T) {
	t.Setenv("PROVER_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, GetEnvIntOrDefault("PROVER_TEST_INT_BAD", 7))
}

func TestGetEnvUint32OrDefault_ParsesValidUint(t *testing.T) {
	t.Setenv("PROVER_TEST_UINT", "65536")
	assert.Equal(t, uint32(65536), GetEnvUint32OrDefault("PROVER_TEST_UINT", 4096))
}

func TestGetEnvUint32OrDefault_FallsBackOnNegative(t *testing.T) {
	t.Setenv("PROVER_TEST_UINT_NEG", "-1")
	assert.Equal(t, uint32(4096), GetEnvUint32OrDefault("PROVER_TEST_UINT_NEG", 4096))
}

func TestLoad_PopulatesDefaults(t *testing.T) {
	cfg := Load()
	assert.NotEmpty(t, cfg.Bind)
	assert.NotZero(t, cfg.Port)
	assert.NotZero(t, cfg.SessionTimeout)
}
