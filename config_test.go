package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	for _, tc := range []struct {
		name    string
		in      string
		want    config
		wantErr string
	}{
		{name: "empty", in: "", want: config{}},
		{
			name: "full",
			in: strings.Join([]string{
				"main: prog.concat",
				"prelude: false",
				"trace: true",
				"timeout: 2s",
				"max_depth: 100",
				"warnings: error",
			}, "\n"),
			want: config{
				Main:     "prog.concat",
				Prelude:  new(bool),
				Trace:    true,
				Timeout:  2 * time.Second,
				MaxDepth: 100,
				Warnings: warnError,
			},
		},
		{name: "unknown field", in: "mian: x", wantErr: "field mian not found"},
		{name: "bad policy", in: "warnings: loud", wantErr: "invalid warning policy"},
		{name: "negative depth", in: "max_depth: -1", wantErr: "invalid max_depth"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := readConfig(strings.NewReader(tc.in))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "concat.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.True(t, cfg.prelude())

	_, err = loadConfig(missing, true)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(missing, []byte("prelude: false\n"), 0o644))
	cfg, err = loadConfig(missing, true)
	require.NoError(t, err)
	assert.False(t, cfg.prelude())
}

func TestWarnPolicy(t *testing.T) {
	var wp warnPolicy
	assert.Equal(t, "warn", wp.String())
	require.NoError(t, wp.Set("ignore"))
	assert.Equal(t, warnIgnore, wp)
	assert.Error(t, wp.Set("shout"))
}
