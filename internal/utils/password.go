package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a staff password with bcrypt at the configured
// cost.  A cost outside bcrypt's supported range falls back to the
// library default rather than erroring at account creation.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether the plain password matches the stored
// bcrypt hash.  The comparison is constant time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
