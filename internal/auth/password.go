package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the bcrypt hash stored on the account record. The
// cost comes from AUTH_BCRYPT_COST so test suites can dial it down.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks plain against the stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
