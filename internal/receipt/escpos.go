package receipt

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding/charmap"
)

// ESC/POS command bytes used by the report.
var (
	cmdInit       = []byte{0x1b, 0x40}
	cmdCodePage   = []byte{0x1b, 0x74, 0x00} // PC437
	cmdAlignLeft  = []byte{0x1b, 0x61, 0x00}
	cmdAlignCtr   = []byte{0x1b, 0x61, 0x01}
	cmdBoldOn     = []byte{0x1b, 0x45, 0x01}
	cmdBoldOff    = []byte{0x1b, 0x45, 0x00}
	cmdDoubleSize = []byte{0x1d, 0x21, 0x11}
	cmdNormalSize = []byte{0x1d, 0x21, 0x00}
	cmdFeedLines  = []byte{0x1b, 0x64, 0x04}
	cmdCut        = []byte{0x1d, 0x56, 0x42, 0x00}
)

// page accumulates printer commands and fixed-width text lines.
type page struct {
	buf   bytes.Buffer
	width int
}

func (p *page) cmd(b []byte) {
	p.buf.Write(b)
}

// line writes s truncated to the page width.
func (p *page) line(s string) {
	s = runewidth.Truncate(fold(s), p.width, "")
	p.buf.Write(cp437(s))
	p.buf.WriteByte('\n')
}

func (p *page) blank() {
	p.buf.WriteByte('\n')
}

func (p *page) rule() {
	p.line(strings.Repeat("-", p.width))
}

// row prints label on the left and value flush right. The label gives way
// when both do not fit.
func (p *page) row(label, value string) {
	label, value = fold(label), fold(value)
	value = runewidth.Truncate(value, p.width, "")
	room := p.width - runewidth.StringWidth(value) - 1
	if room < 0 {
		room = 0
	}
	label = runewidth.Truncate(label, room, "")
	gap := p.width - runewidth.StringWidth(label) - runewidth.StringWidth(value)
	p.line(label + strings.Repeat(" ", gap) + value)
}

// wrap prints s word-wrapped to the page width. Words longer than a line
// are cut.
func (p *page) wrap(s string) {
	var cur string
	for _, word := range strings.Fields(fold(s)) {
		switch {
		case cur == "":
			cur = word
		case runewidth.StringWidth(cur)+1+runewidth.StringWidth(word) <= p.width:
			cur += " " + word
		default:
			p.line(cur)
			cur = word
		}
		for runewidth.StringWidth(cur) > p.width {
			head := runewidth.Truncate(cur, p.width, "")
			p.line(head)
			cur = cur[len(head):]
		}
	}
	if cur != "" {
		p.line(cur)
	}
}

func (p *page) bytes() []byte {
	out := make([]byte, p.buf.Len())
	copy(out, p.buf.Bytes())
	return out
}

// fold replaces runes the printer code page cannot show with '?', drops
// zero-width runes and flattens control characters to spaces, so that one
// rune is one printed column.
func fold(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
		// Thai vowel and tone marks report width 1 but print on the
		// previous cell.
		case unicode.In(r, unicode.Mn, unicode.Me):
		case runewidth.RuneWidth(r) == 0:
		default:
			if _, ok := charmap.CodePage437.EncodeRune(r); ok && runewidth.RuneWidth(r) == 1 {
				b.WriteRune(r)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}

func cp437(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		c, ok := charmap.CodePage437.EncodeRune(r)
		if !ok {
			c = '?'
		}
		out = append(out, c)
	}
	return out
}
