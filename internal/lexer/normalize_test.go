package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_StripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("let x = 1")...)
	out := Normalize(src)
	require.Equal(t, []byte("let x = 1"), out)
}

func TestNormalize_NFCCombiningForm(t *testing.T) {
	// "e" + combining acute accent U+0301, the decomposed (NFD) form.
	nfd := []byte{'e', 0xCC, 0x81}
	out := Normalize(nfd)
	nfc := []byte{0xC3, 0xA9} // U+00E9 "é" precomposed
	require.Equal(t, nfc, out)
}
