package capture

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// TokenLen is the length of an identity token in hex characters.
const TokenLen = 16

// Token returns the identity token for a tracked virtual path: the 64-bit
// xxhash of the NFC-normalised path as fixed-width lowercase hex.
func Token(path string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(norm.NFC.String(path)))
}
