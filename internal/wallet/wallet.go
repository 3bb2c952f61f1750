// Package wallet extracts and validates Ethereum wallet addresses from
// free-form chat text.
package wallet

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

// Extract scans text for a wallet address and returns it in checksummed
// form. Only the last occurrence in the text is considered (the most recent
// mention wins over earlier ones in the same message); it must survive
// validation or no address is reported. Extract never fails: malformed or
// absent addresses simply yield ok=false.
func Extract(text string) (addr string, ok bool) {
	last := ""
	for _, loc := range addressPattern.FindAllStringIndex(text, -1) {
		// A trailing hex character means the candidate is part of a longer
		// hex run (e.g. 41 hex digits), not an address.
		if loc[1] < len(text) && isHexChar(text[loc[1]]) {
			continue
		}
		last = text[loc[0]:loc[1]]
	}
	if last == "" || !Valid(last) {
		return "", false
	}
	return common.HexToAddress(last).Hex(), true
}

// Valid reports whether addr is a well-formed Ethereum address. Mixed-case
// addresses must additionally carry a correct EIP-55 checksum; all-lower and
// all-upper forms are accepted as checksum-agnostic.
func Valid(addr string) bool {
	if !common.IsHexAddress(addr) || len(addr) != 42 {
		return false
	}
	hexPart := addr[2:]
	lower := strings.ToLower(hexPart)
	upper := strings.ToUpper(hexPart)
	if hexPart == lower || hexPart == upper {
		return true
	}
	return common.HexToAddress(addr).Hex() == "0x"+hexPart
}

func isHexChar(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
