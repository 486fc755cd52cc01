package runeio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// c0Names lists the mnemonics of the ASCII control codes 0x00-0x1F in order.
var c0Names = strings.Fields(`
	NUL SOH STX ETX EOT ENQ ACK BEL BS HT NL VT NP CR SO SI
	DLE DC1 DC2 DC3 DC4 NAK SYN ETB CAN EM SUB ESC FS GS RS US`)

// ControlWords maps control mnemonics like "<ESC>" (either case) and caret
// forms like "^[" to their runes.
var ControlWords = make(map[string]rune, 3*len(c0Names)+4)

func init() {
	add := func(name string, r rune) {
		ControlWords["<"+strings.ToUpper(name)+">"] = r
		ControlWords["<"+strings.ToLower(name)+">"] = r
		if caret := CaretForm(r); caret != "" {
			ControlWords[caret] = r
		}
	}
	for i, name := range c0Names {
		add(name, rune(i))
	}
	add("SP", 0x20)
	add("DEL", 0x7F)
}

// CaretForm computes the ^-escaped printable form of a C0 control rune.
func CaretForm(r rune) string {
	if r < 0x20 || r == 0x7f {
		return "^" + string(r^0x40)
	}
	return ""
}

var errInvalidRune = errors.New(`codepoint literal must be 'X', '<NAME>' or '^X'`)

// UnquoteRune parses a single quoted codepoint literal. Besides the escapes
// understood by strconv.UnquoteChar, the quoted body may be a control
// mnemonic like <ESC> or a caret form like ^C.
func UnquoteRune(token string) (rune, error) {
	if len(token) < 3 || token[0] != '\'' || token[len(token)-1] != '\'' {
		return 0, errInvalidRune
	}
	body := token[1 : len(token)-1]
	if r, defined := ControlWords[body]; defined && len(body) > 1 {
		return r, nil
	}
	value, _, tail, err := strconv.UnquoteChar(body, '\'')
	if err != nil {
		return 0, fmt.Errorf("invalid codepoint literal %v: %w", token, err)
	}
	if tail != "" {
		return 0, errInvalidRune
	}
	return value, nil
}

// UnquoteString decodes the body of a double quoted string literal, without
// its surrounding quotes.
func UnquoteString(body string) (string, error) {
	var sb strings.Builder
	for len(body) > 0 {
		r, _, tail, err := strconv.UnquoteChar(body, '"')
		if err != nil {
			return "", fmt.Errorf("invalid escape in string literal %q: %w", body, err)
		}
		sb.WriteRune(r)
		body = tail
	}
	return sb.String(), nil
}
