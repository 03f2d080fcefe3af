// Package textenc resolves the byte-level text encoding of uploaded
// sensor exports.
//
// Field laptops in Japan produce a mix of UTF-8 (with and without BOM),
// Shift_JIS and EUC-JP files, and statistical detectors routinely
// mistake Shift_JIS byte sequences for single-byte Western encodings.
// The resolver therefore treats unreliable guesses as UTF-8 and falls
// back through a fixed chain when the detected encoding fails to
// decode. Resolution happens once per file, never per row.
package textenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/heatlab/sensorhub/internal/decode"
)

// unreliableGuesses are detector results that are wrong often enough on
// Japanese device exports that they are ignored in favor of the
// fallback chain.
var unreliableGuesses = map[string]bool{
	"ISO-8859-1":   true,
	"ISO-8859-2":   true,
	"ISO-8859-5":   true,
	"ISO-8859-6":   true,
	"ISO-8859-7":   true,
	"ISO-8859-8":   true,
	"ISO-8859-9":   true,
	"windows-1252": true,
	"windows-1250": true,
	"KOI8-R":       true,
}

type candidate struct {
	name string
	enc  encoding.Encoding
}

// fallbackChain is tried in order when the detected encoding fails.
// Shift_JIS in x/text uses the Microsoft code page 932 tables, so it
// also covers the Windows variant of the double-byte encoding.
var fallbackChain = []candidate{
	{"UTF-8", unicode.UTF8},
	{"Shift_JIS", japanese.ShiftJIS},
	{"EUC-JP", japanese.EUCJP},
}

// Resolve decodes raw file bytes into a UTF-8 string. It returns a
// *decode.DecodeError when no candidate encoding decodes the content.
func Resolve(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if name, ok := detect(data); ok {
		if s, err := decodeAs(data, name); err == nil {
			return s, nil
		}
		// Detected encoding failed to round-trip; fall through.
	}

	for _, c := range fallbackChain {
		if s, err := decodeWith(data, c.enc); err == nil {
			return s, nil
		}
	}

	return "", &decode.DecodeError{Msg: "undecodable text encoding"}
}

// detect runs statistical detection and filters out guesses known to be
// unreliable. ASCII and unknown results normalize to UTF-8.
func detect(data []byte) (string, bool) {
	best, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || best == nil {
		return "UTF-8", true
	}
	name := best.Charset
	if name == "" || strings.EqualFold(name, "ASCII") || unreliableGuesses[name] {
		return "UTF-8", true
	}
	return name, true
}

func decodeAs(data []byte, name string) (string, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "_", "-")) {
	case "UTF-8", "ASCII":
		return decodeWith(data, unicode.UTF8)
	case "SHIFT-JIS", "SHIFT-JIS-2004", "WINDOWS-31J", "CP932":
		return decodeWith(data, japanese.ShiftJIS)
	case "EUC-JP":
		return decodeWith(data, japanese.EUCJP)
	case "ISO-2022-JP":
		return decodeWith(data, japanese.ISO2022JP)
	case "UTF-16LE":
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM))
	case "UTF-16BE":
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM))
	default:
		return decodeWith(data, unicode.UTF8)
	}
}

// decodeWith decodes strictly: any byte sequence invalid under enc is
// an error rather than a replacement rune, so the fallback chain can
// move on to the next candidate.
func decodeWith(data []byte, enc encoding.Encoding) (string, error) {
	if enc == unicode.UTF8 {
		if !utf8.Valid(data) {
			return "", errInvalidBytes
		}
		return string(data), nil
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	// x/text decoders substitute U+FFFD instead of failing; treat any
	// substitution as a decode failure so the chain keeps trying.
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(data, utf8.RuneError) {
		return "", errInvalidBytes
	}
	return string(out), nil
}

var errInvalidBytes = &decode.DecodeError{Msg: "invalid byte sequence for encoding"}
