package services

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

// newID builds "<unix-millis>-<suffix>". The suffix keeps ids distinct when
// many are minted in the same millisecond (bulk add, merge import).
func newID(now time.Time) string {
	suffix, err := randomString(5)
	if err != nil {
		suffix = strconv.FormatInt(now.UnixNano()%1e6, 36)
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

func randomString(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
