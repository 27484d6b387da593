package proxy

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

var errInvalidShiftJIS = errors.New("invalid Shift_JIS byte sequence")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// WHATWG maps the user-defined lead bytes 0xF0-0xF9 onto the private use
// area; pointers 8836..10715 become U+E000..U+E757.
const (
	userDefinedFirstPointer = 8836
	userDefinedLastPointer  = 10715
)

// decodeShiftJIS transcodes Shift-JIS bytes to UTF-8. A leading byte order
// mark switches to UTF-8 or UTF-16 for the rest of the input. Any malformed
// or unmapped sequence fails the whole decode.
func decodeShiftJIS(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		rest := raw[len(bomUTF8):]
		if !utf8.Valid(rest) {
			return "", errInvalidShiftJIS
		}
		return string(rest), nil
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeStrict(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw[2:]))
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeStrict(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw[2:]))
	}

	var (
		out   []byte
		start int
	)
	flush := func(end int) error {
		if start == end {
			return nil
		}
		chunk, err := japanese.ShiftJIS.NewDecoder().Bytes(raw[start:end])
		if err != nil {
			return err
		}
		if bytes.ContainsRune(chunk, utf8.RuneError) {
			return errInvalidShiftJIS
		}
		out = append(out, chunk...)
		return nil
	}

	for i := 0; i < len(raw); {
		lead := raw[i]
		if !isLeadByte(lead) || i+1 == len(raw) {
			i++
			continue
		}
		if r, ok := userDefinedRune(lead, raw[i+1]); ok {
			if err := flush(i); err != nil {
				return "", err
			}
			out = utf8.AppendRune(out, r)
			i += 2
			start = i
			continue
		}
		i += 2
	}
	if err := flush(len(raw)); err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeStrict rejects output in which the decoder substituted U+FFFD.
func decodeStrict(out []byte, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errInvalidShiftJIS
	}
	return string(out), nil
}

func isLeadByte(b byte) bool {
	return (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC)
}

func userDefinedRune(lead, trail byte) (rune, bool) {
	if lead < 0xF0 || lead > 0xF9 {
		return 0, false
	}
	if trail < 0x40 || trail == 0x7F || trail > 0xFC {
		return 0, false
	}
	leadOffset, trailOffset := 0xC1, 0x40
	if trail >= 0x7F {
		trailOffset = 0x41
	}
	pointer := (int(lead)-leadOffset)*188 + int(trail) - trailOffset
	if pointer < userDefinedFirstPointer || pointer > userDefinedLastPointer {
		return 0, false
	}
	return rune(0xE000 + pointer - userDefinedFirstPointer), true
}
