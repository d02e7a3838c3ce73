package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		err := p.Error("Ledger unavailable", "The ledger file could not be opened", nil)
		require.Error(t, err)
		assert.Equal(t, "Ledger unavailable", err.Error())
		assert.Contains(t, errOut.String(), "The ledger file could not be opened")
	})

	t.Run("single suggestion printed verbatim", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		p.Error("Bad flag", "Explanation", []string{"Try --since 1h"})
		assert.Contains(t, errOut.String(), "Try --since 1h\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		p.Error("Bad flag", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext_SortsKeys(t *testing.T) {
	p, _, errOut := newTestPrinter(t)
	err := p.ErrorWithContext("Check failed", "", map[string]string{"topic": "data/manpower", "operator": "42"}, nil)
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "  operator: 42\n  topic: data/manpower\n")
}

func TestFeedback(t *testing.T) {
	p, out, _ := newTestPrinter(t)

	p.Feedback(true, "start success", map[string]string{"operator": "42"})
	p.Feedback(false, "no operator active", nil)

	assert.Equal(t, "✓ start success\n  operator: 42\n✗ no operator active\n", out.String())
}

func TestSuccessAndWarning(t *testing.T) {
	p, out, errOut := newTestPrinter(t)

	p.Success("imported %d operators\n", 3)
	p.Success("✓ already prefixed\n")
	p.Warning("queue nearly full\n")

	assert.Equal(t, "✓ imported 3 operators\n✓ already prefixed\n", out.String())
	assert.Equal(t, "⚠️  queue nearly full\n", errOut.String())
}
