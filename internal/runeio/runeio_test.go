package runeio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnquoteRune(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    rune
		wantErr string
	}{
		{in: `'a'`, want: 'a'},
		{in: `'\n'`, want: '\n'},
		{in: `'λ'`, want: 'λ'},
		{in: `'<ESC>'`, want: 0x1b},
		{in: `'<esc>'`, want: 0x1b},
		{in: `'^C'`, want: 0x03},
		{in: `'<DEL>'`, want: 0x7f},
		{in: `'ab'`, wantErr: "codepoint literal must be"},
		{in: `''`, wantErr: "codepoint literal must be"},
		{in: `'\q'`, wantErr: "invalid codepoint literal"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			r, err := UnquoteRune(tc.in)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, r)
		})
	}
}

func TestUnquoteString(t *testing.T) {
	s, err := UnquoteString(`tab\there \"quoted\" é`)
	require.NoError(t, err)
	assert.Equal(t, "tab\there \"quoted\" é", s)

	_, err = UnquoteString(`bad \q`)
	assert.Error(t, err)
}

func TestCaretForm(t *testing.T) {
	assert.Equal(t, "^[", CaretForm(0x1b))
	assert.Equal(t, "^?", CaretForm(0x7f))
	assert.Equal(t, "", CaretForm('a'))
}

func TestWriteANSIString(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"unicode", "héllo λ", "héllo λ"},
		{"csi", "\u009b2J", "\x1b[2J"},
		{"nel", "a\u0085b", "a\r\nb"},
		{"empty", "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			n, err := WriteANSIString(&sb, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sb.String())
			assert.Equal(t, len(tc.want), n)
		})
	}
}
