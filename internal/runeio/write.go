package runeio

import (
	"io"
	"strings"
)

// WriteANSIString writes s to w for display on a terminal. C1 control runes
// are written in their 7-bit escape form, so "\u009b" becomes ESC '['; NEL
// is written as "\r\n". Everything else passes through as UTF-8, in as few
// writes as possible.
func WriteANSIString(w io.Writer, s string) (n int, err error) {
	for len(s) > 0 {
		i := strings.IndexFunc(s, isC1)
		if i < 0 {
			i = len(s)
		}
		if i > 0 {
			m, err := io.WriteString(w, s[:i])
			n += m
			if err != nil {
				return n, err
			}
			s = s[i:]
			continue
		}
		r := []rune(s[:2])[0]
		m, err := w.Write(c1Bytes(r))
		n += m
		if err != nil {
			return n, err
		}
		s = s[2:]
	}
	return n, nil
}

func isC1(r rune) bool { return r >= 0x80 && r <= 0x9f }

func c1Bytes(r rune) []byte {
	if r == 0x85 {
		return []byte{'\r', '\n'}
	}
	return []byte{0x1b, byte(r ^ 0xc0)}
}
