package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Hash returns the SHA-256 digest, as lowercase hex, of the block fields
// concatenated in the order index, previous hash, timestamp, data. Every node
// must produce the same value for the same fields.
func Hash(index uint64, prevHash string, timeStamp float64, data string) string {
	buf := make([]byte, 0, 48+len(prevHash)+len(data))
	buf = strconv.AppendUint(buf, index, 10)
	buf = append(buf, prevHash...)
	buf = append(buf, FormatTimeStamp(timeStamp)...)
	buf = append(buf, data...)

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// HashBlock recomputes the hash of the specified block from its fields.
func HashBlock(b Block) string {
	return Hash(b.Index, b.PrevHash, b.TimeStamp, b.Data)
}

// FormatTimeStamp renders a timestamp the way a JavaScript number converts
// to a string: the shortest digits that round trip, in plain notation
// between 1e-6 and 1e21 and in exponent notation outside of it.
func FormatTimeStamp(ts float64) string {
	abs := math.Abs(ts)
	switch {
	case ts == 0:
		return "0"
	case abs >= 1e-6 && abs < 1e21:
		return strconv.FormatFloat(ts, 'f', -1, 64)
	}

	// Go writes at least two exponent digits, JavaScript writes no padding.
	s := strconv.FormatFloat(ts, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")

	return mantissa + "e" + sign + digits
}
