package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsource/agentloop/tool"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+2", 4},
		{"3 * 7 - 1", 20},
		{"10 / 4", 2.5},
		{"1 + 2 * 3", 7},
		{"8 - 6 / 2", 5},
		{"-3 + 5", 2},
		{"2.5 * 2", 5},
		{"42", 42},
	}

	for _, tt := range tests {
		got, err := evaluate(tt.expr)
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, tt.want, got, "expr %q", tt.expr)
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"1 +",
		"1 / 0",
		"two plus two",
		"1 ^ 2",
	} {
		_, err := evaluate(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestSetupDemoTools(t *testing.T) {
	registry := tool.NewRegistry()
	SetupDemoTools(registry)

	assert.ElementsMatch(t, []string{
		"calculator", "get_date", "get_weather", "web_search", "scrape_page",
	}, registry.Names())
}
