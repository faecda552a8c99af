package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned for a wrong password or an unusable hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Cost is the bcrypt work factor for new hashes.
var Cost = bcrypt.DefaultCost

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// NeedsRehash reports whether hash was produced with a different cost than Cost.
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != Cost
}
