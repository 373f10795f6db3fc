package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
		"DEEPL_API_KEY", "GOOGLE_TRANSLATE_API_KEY",
	} {
		t.Setenv(name, "")
	}

	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "error"))

	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.shutdown(context.Background()))
	return out.String(), err
}

func TestMethodsCommand(t *testing.T) {
	out, err := run(t, "", "methods", "--format", "json")
	require.NoError(t, err)

	var statuses []struct {
		Method string `json:"method"`
		Ready  bool   `json:"ready"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 4)
	assert.Equal(t, "method_a", statuses[0].Method)
	for _, s := range statuses {
		assert.False(t, s.Ready)
		assert.Equal(t, "missing credential", s.Reason)
	}
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candidates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source: "هذا نص تجريبي للترجمة."
candidates:
  - method: method_b
    text: "This is a test text for translation."
  - method: method_a
    text: "This is a trial text to translate."
    native_confidence: 0.8
  - method: method_c
    text: ""
`), 0o600))

	out, err := run(t, "", "evaluate", path, "--format", "json", "--policy", "always")
	require.NoError(t, err)

	var sel domain.Selection
	require.NoError(t, json.Unmarshal([]byte(out), &sel))
	assert.Equal(t, "evaluate", sel.Mode)
	assert.True(t, sel.Ensemble)
	assert.Len(t, sel.Candidates, 3)
	assert.NotEqual(t, domain.MethodC, sel.Winner)
}

func TestEvaluateCommand_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"source": "نص", "candidates": [{"method": "method_a", "txt": "typo"}]}`), 0o600))

	_, err := run(t, "", "evaluate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse candidates")
}

func TestTranslateCommand_EmptyInput(t *testing.T) {
	_, err := run(t, "   \n", "translate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input is empty")
}

func TestTranslateCommand_NoMethodsAvailable(t *testing.T) {
	_, err := run(t, "هذا نص تجريبي.", "translate", "--single")
	require.ErrorIs(t, err, domain.ErrNoCandidates)
}

func TestInvalidPolicyFlag(t *testing.T) {
	_, err := run(t, "", "methods", "--policy", "lenient")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "methods.yaml")
	out, err := run(t, "", "methods", "--format", "yaml", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "method: method_a")
}
