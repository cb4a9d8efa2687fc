package boardlink

import (
	"bytes"
	"strings"
)

// Command is a single line sent to the board
type Command struct {
	Payload string
}

// EncodeCommand returns the wire form of cmd: the payload followed by a newline
func EncodeCommand(cmd Command) []byte {
	out := make([]byte, 0, len(cmd.Payload)+1)
	out = append(out, cmd.Payload...)
	return append(out, '\n')
}

// DecodeLines splits carry+chunk into complete lines and the unterminated tail.
// Lines are returned without their "\n" or "\r\n" terminator. Carry holds raw
// bytes so a multi-byte rune split between chunks survives intact; invalid
// UTF-8 in a completed line is replaced with U+FFFD.
func DecodeLines(chunk []byte, carry string) ([]string, string) {
	if len(chunk) == 0 {
		return nil, carry
	}

	buf := make([]byte, 0, len(carry)+len(chunk))
	buf = append(buf, carry...)
	buf = append(buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, finishLine(buf[:i]))
		buf = buf[i+1:]
	}
	return lines, string(buf)
}

func finishLine(b []byte) string {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// LineDecoder accumulates chunks from one session into lines.
// It is not safe for concurrent use.
type LineDecoder struct {
	carry  string
	maxLen int
}

// NewLineDecoder returns a decoder that flushes an unterminated tail once it
// grows past maxLen bytes. maxLen <= 0 disables the bound.
func NewLineDecoder(maxLen int) *LineDecoder {
	return &LineDecoder{maxLen: maxLen}
}

// Decode feeds chunk and returns every line it completes
func (d *LineDecoder) Decode(chunk []byte) []string {
	lines, carry := DecodeLines(chunk, d.carry)
	if d.maxLen > 0 && len(carry) > d.maxLen {
		lines = append(lines, finishLine([]byte(carry)))
		carry = ""
	}
	d.carry = carry
	return lines
}

// Pending returns the unterminated tail held between chunks
func (d *LineDecoder) Pending() string {
	return d.carry
}

// Reset discards any pending tail
func (d *LineDecoder) Reset() {
	d.carry = ""
}
