package escpos

import (
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

const EncodingUTF8 = "utf8"

// codePages maps a profile's text encoding name to the single-byte table
// used to encode text for the device. The numeric ESC t value sent on the
// wire comes from the profile, not from this table.
var codePages = map[string]*charmap.Charmap{
	"cp437":  charmap.CodePage437,
	"cp850":  charmap.CodePage850,
	"cp852":  charmap.CodePage852,
	"cp855":  charmap.CodePage855,
	"cp858":  charmap.CodePage858,
	"cp860":  charmap.CodePage860,
	"cp863":  charmap.CodePage863,
	"cp865":  charmap.CodePage865,
	"cp866":  charmap.CodePage866,
	"cp1250": charmap.Windows1250,
	"cp1251": charmap.Windows1251,
	"cp1252": charmap.Windows1252,
}

// SupportedEncodings lists the accepted text_encoding values for a profile.
func SupportedEncodings() []string {
	names := make([]string, 0, len(codePages)+1)
	for name := range codePages {
		names = append(names, name)
	}
	names = append(names, EncodingUTF8)
	return names
}

func IsSupportedEncoding(name string) bool {
	if name == EncodingUTF8 {
		return true
	}
	_, ok := codePages[name]
	return ok
}

// encodeText converts s to the device byte form for the given encoding name.
// Unencodable strings fall back to their raw UTF-8 bytes rather than failing
// the job.
func encodeText(s, encoding string) []byte {
	cm, ok := codePages[encoding]
	if !ok {
		return []byte(s)
	}
	out, err := cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// rasterScripts are the character repertoires a single-byte code page can
// never carry; receipts containing them need the bitmap fallback.
var rasterScripts = []*unicode.RangeTable{
	unicode.Arabic,
	unicode.Hebrew,
	unicode.Devanagari,
	unicode.Bengali,
	unicode.Gurmukhi,
	unicode.Thai,
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

func needsRaster(s string) bool {
	for _, r := range s {
		if unicode.IsOneOf(rasterScripts, r) {
			return true
		}
	}
	return false
}
