package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jcorbin/goconcat/internal/logio"
)

type mainResult struct {
	code   int
	stdout string
	stderr string
}

func runMainTest(t *testing.T, stdin string, args ...string) mainResult {
	var stdout, stderr bytes.Buffer
	var log logio.Logger
	log.SetOutput(&stderr)
	args = append([]string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	// an explicit missing config is an error, so point at an empty one
	require.NoError(t, os.WriteFile(args[1], nil, 0o644))
	code := runMain(context.Background(), &log, args, strings.NewReader(stdin), &stdout)
	return mainResult{code, stdout.String(), stderr.String()}
}

func writeSource(t *testing.T, name, text string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestMainRun(t *testing.T) {
	res := runMainTest(t, `"hello" println 3 7 max println`)
	assert.Equal(t, 0, res.code, "stderr: %v", res.stderr)
	assert.Equal(t, "hello\n7\n", res.stdout)
}

func TestMainExit(t *testing.T) {
	res := runMainTest(t, "inc proc( int => int ){ 1 + }\n4 inc exit")
	assert.Equal(t, 5, res.code)
}

func TestMainErrors(t *testing.T) {
	t.Run("check", func(t *testing.T) {
		res := runMainTest(t, "1 +")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "ERROR: ")
	})
	t.Run("runtime", func(t *testing.T) {
		res := runMainTest(t, "div proc( int int => int ){ / }\n1 0 div")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "native /")
	})
	t.Run("no prelude", func(t *testing.T) {
		res := runMainTest(t, "3 7 max", "-no-prelude")
		assert.Equal(t, 1, res.code)
	})
	t.Run("bad flag", func(t *testing.T) {
		res := runMainTest(t, "", "-bogus")
		assert.Equal(t, 2, res.code)
	})
}

func TestMainWarnings(t *testing.T) {
	src := "Color enum{ red green blue }\nColor .red switch{ red case 1 break default 2 break }"
	res := runMainTest(t, src)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stderr, "WARN: ")

	res = runMainTest(t, src, "-warnings", "error")
	assert.Equal(t, 1, res.code)

	res = runMainTest(t, src, "-warnings", "ignore")
	assert.Equal(t, 0, res.code)
	assert.NotContains(t, res.stderr, "WARN")
}

func TestMainCheck(t *testing.T) {
	good := writeSource(t, "good.concat", "sq proc( int => int ){ dup * }\n3 sq")
	bad := writeSource(t, "bad.concat", "1 \"s\" +")

	res := runMainTest(t, "", "-check", good)
	assert.Equal(t, 0, res.code, "stderr: %v", res.stderr)
	assert.Contains(t, res.stderr, "checked 1 files with 0 warnings")

	res = runMainTest(t, "", "-check", good, bad)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "bad.concat")
	assert.Empty(t, res.stdout)
}

func TestMainDump(t *testing.T) {
	res := runMainTest(t, "sq proc( int => int ){ dup * }\n3 sq", "-dump", "-no-prelude")
	require.Equal(t, 0, res.code, "stderr: %v", res.stderr)

	var lst listing
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &lst))
	assert.Equal(t, []string{"int"}, lst.Stack)
	assert.Equal(t, []string{"@0 3", "@1 call sq"}, lst.Code)
	require.Len(t, lst.Procs, 1)
	assert.Equal(t, "sq", lst.Procs[0].Label)
	assert.Equal(t, "( int => int )", lst.Procs[0].Type)
}

func TestMainConfig(t *testing.T) {
	mainSrc := writeSource(t, "main.concat", "\"from config\" println")
	cfg := writeSource(t, "concat.yaml", "main: "+mainSrc+"\nprelude: false\n")

	var stdout, stderr bytes.Buffer
	var log logio.Logger
	log.SetOutput(&stderr)
	code := runMain(context.Background(), &log, []string{"-config", cfg}, strings.NewReader(""), &stdout)
	assert.Equal(t, 0, code, "stderr: %v", stderr.String())
	assert.Equal(t, "from config\n", stdout.String())
}
