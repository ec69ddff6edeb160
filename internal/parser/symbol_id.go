package parser

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// StableSymbolKey returns the key used to match a symbol across index builds.
// Dense symbol indices are only valid within one build; this key is not.
// Format: file|line|qualified-name|signature-hash.
func StableSymbolKey(file string, symbol Symbol) string {
	base := fmt.Sprintf("%s|%d|%s", file, symbol.Line, symbol.QualifiedName())

	if symbol.Signature == "" {
		return base
	}

	sigHash := xxhash.Sum64String(symbol.Signature)
	return base + "|" + strconv.FormatUint(sigHash&0xffffffff, 16)
}
