package process

import (
	"fmt"
	"strconv"
	"strings"
)

// Address represents a memory address within a process
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

// Size represents a size of a memory range
type Size uint

// AOB (Array of Bytes) represents a pattern to search for in memory.
// Mask is bitwise: a match compares data&mask against pattern&mask, so a
// mask byte of 0x00 is a full wildcard and e.g. 0xFE matches two adjacent
// byte values.
type AOB struct {
	Pattern []byte
	Mask    []byte
}

func NewAOB(pattern, mask []byte) (AOB, error) {
	if len(pattern) != len(mask) {
		return AOB{}, fmt.Errorf("pattern and mask must be of the same length")
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

// ExactAOB builds an AOB that matches data exactly, no wildcards.
func ExactAOB(data []byte) AOB {
	mask := make([]byte, len(data))
	for i := range mask {
		mask[i] = 0xFF
	}
	return AOB{Pattern: data, Mask: mask}
}

// ParseAOB parses a textual pattern like "a4 01 ?? 08" or "a4,01,??,08".
// "??" (or "?") is a wildcard byte; a trailing "&hh" on a byte applies a
// bitwise mask, e.g. "08&fe" matches 0x08 and 0x09.
func ParseAOB(s string) (AOB, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(parts) == 0 {
		return AOB{}, fmt.Errorf("empty pattern")
	}

	aob := AOB{
		Pattern: make([]byte, 0, len(parts)),
		Mask:    make([]byte, 0, len(parts)),
	}
	for _, part := range parts {
		if part == "??" || part == "?" {
			aob.Pattern = append(aob.Pattern, 0)
			aob.Mask = append(aob.Mask, 0)
			continue
		}

		byteStr, maskStr := part, "ff"
		if idx := strings.IndexByte(part, '&'); idx >= 0 {
			byteStr, maskStr = part[:idx], part[idx+1:]
		}

		val, err := strconv.ParseUint(byteStr, 16, 8)
		if err != nil {
			return AOB{}, fmt.Errorf("invalid hex byte: %s", part)
		}
		mask, err := strconv.ParseUint(maskStr, 16, 8)
		if err != nil {
			return AOB{}, fmt.Errorf("invalid mask byte: %s", part)
		}

		aob.Pattern = append(aob.Pattern, byte(val))
		aob.Mask = append(aob.Mask, byte(mask))
	}

	return aob, nil
}

// Len returns the pattern length in bytes.
func (aob AOB) Len() int {
	return len(aob.Pattern)
}

// MatchAt reports whether the pattern matches data at offset i.
func (aob AOB) MatchAt(data []byte, i int) bool {
	if i < 0 || i+len(aob.Pattern) > len(data) {
		return false
	}
	for j := 0; j < len(aob.Pattern); j++ {
		if aob.Mask[j] == 0 {
			continue
		}
		if data[i+j]&aob.Mask[j] != aob.Pattern[j]&aob.Mask[j] {
			return false
		}
	}
	return true
}
