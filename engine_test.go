package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternsec/engine/scanner"
)

const sampleRules = `
languages:
  python:
    critical:
      python-eval:
        detection_pattern: '\beval\s*\('
        attack_id: CWE-95
        category: code_injection
        cvss: 9.8
    high:
      python-broken:
        detection_pattern: '[unclosed'
        cvss: 5.0
`

func TestOpenEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, ruleErrs, err := Open(path, scanner.WithLogger(quiet))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Len(t, ruleErrs, 1, "the uncompilable rule is reported, not fatal")

	findings, err := s.ScanFile(context.Background(), "app.py", "y = eval(input())")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "CWE-95", findings[0].PrimaryAttackID)

	require.NoError(t, s.Close(context.Background()))
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
