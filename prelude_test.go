package main

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreludeChecks(t *testing.T) {
	prog, err := compiler{warnf: t.Logf}.compile()
	require.NoError(t, err)
	assert.Empty(t, prog.Code)
	assert.Empty(t, prog.Stack)
}

func TestPreludeText(t *testing.T) {
	r, err := prelude.Reader()
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	text := string(b)
	for _, name := range []string{"max", "min", "abs", "sign", "implies", "newline"} {
		assert.True(t, strings.Contains(text, "\n"+name+" proc(") || strings.HasPrefix(text, name+" proc("),
			"prelude should declare %v", name)
	}
}

func TestPreludeProcs(t *testing.T) {
	vmTestCases{
		vmTest("implies").
			withPrelude().
			withSource("true false implies false false implies").
			expectStack("false", "true"),
		vmTest("newline").
			withPrelude().
			withSource(`"a" print newline`).
			expectOutput("a\n"),
		vmTest("user overload").
			withPrelude().
			withSource(
				"max proc( bool bool => bool ){ | }",
				"true false max 2 1 max",
			).
			expectStack("true", "2"),
	}.run(t)
}

type failWriter struct{ after int }

func (fw *failWriter) Write(p []byte) (int, error) {
	if fw.after <= 0 {
		return 0, errors.New("disk full")
	}
	fw.after--
	return len(p), nil
}

func TestPreludeWriteError(t *testing.T) {
	n, err := prelude.WriteTo(&failWriter{after: 2})
	assert.EqualError(t, err, "disk full")
	assert.Greater(t, n, int64(0))
}
