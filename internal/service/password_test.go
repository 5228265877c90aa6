package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"footballapp/internal/domain"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher()

	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret1" || !strings.HasPrefix(hash, "$2a$10$") {
		t.Fatalf("expected bcrypt cost 10 hash, got %q", hash)
	}
	if !h.Verify("secret1", hash) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("secret2", hash) {
		t.Fatalf("expected wrong password to fail")
	}
	if h.Verify("secret1", "") {
		t.Fatalf("expected empty hash to fail")
	}
}

func TestPasswordHasher_UnusableHash(t *testing.T) {
	h := newPasswordHasherWithCost(bcrypt.MinCost)

	hash, err := h.UnusableHash()
	if err != nil {
		t.Fatalf("unusable hash: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected a hash")
	}
	if h.Verify("", hash) {
		t.Fatalf("expected empty password to not match")
	}
}

func TestPasswordHasher_DummyMatchesCost(t *testing.T) {
	h := NewPasswordHasher()

	cost, err := bcrypt.Cost(h.dummy)
	if err != nil {
		t.Fatalf("dummy cost: %v", err)
	}
	if cost != passwordCost {
		t.Fatalf("expected dummy hash at cost %d, got %d", passwordCost, cost)
	}
}

// countingHasher envuelve la comparación real para contar cuántas se ejecutan.
func countingHasher(t *testing.T, cost int) (*PasswordHasher, *int) {
	t.Helper()
	h := newPasswordHasherWithCost(cost)
	calls := 0
	inner := h.compare
	h.compare = func(hash, plain []byte) error {
		calls++
		return inner(hash, plain)
	}
	return h, &calls
}

func seedLocalUser(t *testing.T, h *PasswordHasher, emailAddr, password string) *mockUserRepo {
	t.Helper()
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := newMockUserRepo()
	user := domain.NewUser("Alice", emailAddr, hash, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create: %v", err)
	}
	return repo
}

func TestLocalStrategy_OneCompareForEveryFailure(t *testing.T) {
	h, calls := countingHasher(t, bcrypt.MinCost)
	strategy := NewLocalStrategy(seedLocalUser(t, h, "alice@x.com", "secret1"), h)

	cases := []struct {
		name  string
		creds LocalCredentials
		want  error
	}{
		{"unknown user", LocalCredentials{Email: "nobody@x.com", Password: "secret1"}, ErrNoSuchUser},
		{"wrong password", LocalCredentials{Email: "alice@x.com", Password: "wrong-pass"}, ErrBadCredentials},
		{"valid", LocalCredentials{Email: "alice@x.com", Password: "secret1"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			*calls = 0
			_, err := strategy.Verify(context.Background(), tc.creds)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if *calls != 1 {
				t.Fatalf("expected exactly one bcrypt compare, got %d", *calls)
			}
		})
	}
}

func TestLocalStrategy_UnknownUserTakesComparableTime(t *testing.T) {
	if testing.Short() {
		t.Skip("runs bcrypt at production cost")
	}
	h := NewPasswordHasher()
	strategy := NewLocalStrategy(seedLocalUser(t, h, "alice@x.com", "secret1"), h)

	fastest := func(creds LocalCredentials) time.Duration {
		best := time.Duration(-1)
		for i := 0; i < 3; i++ {
			start := time.Now()
			_, _ = strategy.Verify(context.Background(), creds)
			if d := time.Since(start); best < 0 || d < best {
				best = d
			}
		}
		return best
	}

	wrong := fastest(LocalCredentials{Email: "alice@x.com", Password: "wrong-pass"})
	unknown := fastest(LocalCredentials{Email: "nobody@x.com", Password: "wrong-pass"})
	if unknown < wrong/3 {
		t.Fatalf("unknown-user login too fast: %v vs wrong password %v", unknown, wrong)
	}
}
