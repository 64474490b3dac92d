package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAllowedSenders(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	got := ParseAllowedSenders("abc@gmail.com\r\nDEF@Example.com\n\nabc@gmail.com\nnot an email\nbad-line\n", log)
	assert.Equal(t, []string{"abc@gmail.com", "def@example.com"}, got)
}

func TestParseAllowedSendersEmpty(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	assert.Empty(t, ParseAllowedSenders("", log))
	assert.Empty(t, ParseAllowedSenders("\n  \n", log))
	assert.Empty(t, ParseAllowedSenders("no-at-sign", log))
}
