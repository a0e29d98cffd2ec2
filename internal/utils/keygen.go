package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// orderNumberDigits is the width of the human-facing order number.
const orderNumberDigits = 6

// GenerateOrderNumber returns a random zero-padded numeric order label such
// as "004217". Collisions are possible; the value is a display label only.
func GenerateOrderNumber() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", orderNumberDigits, n.Int64()), nil
}
