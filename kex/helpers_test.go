package kex

import "math/big"

func newBig(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func modExp(g, y, p *big.Int) *big.Int {
	return new(big.Int).Exp(g, y, p)
}

func newTestScalar() *big.Int {
	return big.NewInt(123456789)
}
