package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(true, false, "/etc/presswork", "1.2.3")

	assert.True(t, cfg.Debug)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, "/etc/presswork", cfg.ConfigPath)
	assert.Equal(t, "1.2.3", cfg.Version)
}
