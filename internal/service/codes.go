package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	codeMin = 1000
	codeMax = 9999
)

// generateCode sortea un código uniforme en [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

func isValidCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return code[0] != '0'
}
