package draft

import (
	"crypto/rand"
	"math/big"
)

// CryptoRand draws from crypto/rand so concurrent map draws need no locking
type CryptoRand struct{}

// Intn returns a value in [0, n). n must be positive. It panics if the
// system random source fails.
func (CryptoRand) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}
