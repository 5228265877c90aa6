package service

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 10

// PasswordHasher aplica bcrypt con un costo fijo.
type PasswordHasher struct {
	cost    int
	dummy   []byte
	compare func(hash, plain []byte) error
}

func NewPasswordHasher() *PasswordHasher {
	return newPasswordHasherWithCost(passwordCost)
}

func newPasswordHasherWithCost(cost int) *PasswordHasher {
	dummy, err := bcrypt.GenerateFromPassword([]byte("footballapp-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return &PasswordHasher{cost: cost, dummy: dummy, compare: bcrypt.CompareHashAndPassword}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compara en tiempo constante; un hash vacío o inválido nunca coincide.
// Cada llamada ejecuta exactamente una comparación bcrypt.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	if hash == "" {
		h.CompareDummy(plain)
		return false
	}
	return h.compare([]byte(hash), []byte(plain)) == nil
}

// CompareDummy consume el mismo tiempo que Verify cuando no hay usuario.
func (h *PasswordHasher) CompareDummy(plain string) {
	_ = h.compare(h.dummy, []byte(plain))
}

// UnusableHash genera el hash de un secreto aleatorio que nadie conoce.
func (h *PasswordHasher) UnusableHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random password: %w", err)
	}
	// bcrypt limita la entrada a 72 bytes; 32 bytes crudos entran sin truncar.
	return h.Hash(string(buf))
}
