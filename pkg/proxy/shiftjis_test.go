package proxy

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func TestDecodeShiftJIS(t *testing.T) {
	raw, err := japanese.ShiftJIS.NewEncoder().String("年月日,基準価額(円)\r\n2024年01月04日,23456\r\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	got, err := decodeShiftJIS([]byte(raw))
	if err != nil {
		t.Fatalf("decodeShiftJIS: %v", err)
	}
	if got != "年月日,基準価額(円)\r\n2024年01月04日,23456\r\n" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestDecodeShiftJISHalfWidthKatakana(t *testing.T) {
	got, err := decodeShiftJIS([]byte{0xb1, 0xb2})
	if err != nil {
		t.Fatalf("decodeShiftJIS: %v", err)
	}
	if got != "ｱｲ" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestDecodeShiftJISRejectsInvalidInput(t *testing.T) {
	cases := map[string][]byte{
		"truncated lead byte":      {0x82},
		"truncated after valid":    {0x83, 0x74, 0x81},
		"lead byte before newline": {0x41, 0x82, 0x0a},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := decodeShiftJIS(raw)
			if !errors.Is(err, errInvalidShiftJIS) {
				t.Fatalf("expected invalid Shift_JIS error, got %v", err)
			}
			if got != "" {
				t.Fatalf("expected no partial text, got %q", got)
			}
		})
	}
}

func TestDecodeShiftJISEmpty(t *testing.T) {
	got, err := decodeShiftJIS(nil)
	if err != nil || got != "" {
		t.Fatalf("expected empty success, got %q, %v", got, err)
	}
}

func TestDecodeShiftJISUserDefinedArea(t *testing.T) {
	cases := map[string]struct {
		raw  []byte
		want string
	}{
		"first user-defined":       {raw: []byte{0xF0, 0x40}, want: "\ue000"},
		"last user-defined":        {raw: []byte{0xF9, 0xFC}, want: "\ue757"},
		"trail above 0x7f":         {raw: []byte{0xF0, 0x80}, want: "\ue03f"},
		"mixed with kanji":         {raw: []byte{0x94, 0x4E, 0xF0, 0x40, 0x41}, want: "年\ue000A"},
		"nec special":              {raw: []byte{0x87, 0x40}, want: "①"},
		"single byte 0x80":         {raw: []byte{0x80}, want: "\u0080"},
		"utf-8 byte order mark":    {raw: []byte{0xEF, 0xBB, 0xBF, 'a'}, want: "a"},
		"utf-16le byte order mark": {raw: []byte{0xFF, 0xFE, 'a', 0x00}, want: "a"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := decodeShiftJIS(tc.raw)
			if err != nil {
				t.Fatalf("decodeShiftJIS: %v", err)
			}
			if got != tc.want {
				t.Fatalf("decodeShiftJIS() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeShiftJISRejectsInvalidAfterMark(t *testing.T) {
	cases := map[string][]byte{
		"user-defined bad trail":  {0xF0, 0x20},
		"user-defined truncated":  {0x41, 0xF0},
		"invalid utf-8 after bom": {0xEF, 0xBB, 0xBF, 0xFF},
		"odd utf-16 payload":      {0xFE, 0xFF, 0x00},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := decodeShiftJIS(raw)
			if !errors.Is(err, errInvalidShiftJIS) {
				t.Fatalf("expected invalid Shift_JIS error, got %v", err)
			}
			if got != "" {
				t.Fatalf("expected no partial text, got %q", got)
			}
		})
	}
}
