// Package fracindex generates dense ordering keys. Keys are strings that
// sort with plain byte comparison, and a new key can always be generated
// between any two existing ones, so inserting never renumbers siblings.
//
// A key is an integer part followed by an optional fraction. The first
// character of the integer part encodes its length: 'a'..'z' for 2..27
// characters (non-negative), 'Z'..'A' for 2..27 characters (negative).
// Digits are base 62. Fractions never end in '0'. Generation is done by
// fracdex, which uses the same key format as the frontend editor.
//
// The empty string stands for "no bound" in every function of this package.
package fracindex

import (
	"errors"
	"fmt"
	"strings"

	"roci.dev/fracdex"
)

const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// smallestInteger has no key below it and is rejected as a bound.
var smallestInteger = "A" + strings.Repeat("0", 26)

var (
	ErrInvalidKey = errors.New("fracindex: invalid key")
	ErrOrder      = errors.New("fracindex: lower bound must sort before upper bound")
)

func integerLength(head byte) (int, error) {
	switch {
	case head >= 'a' && head <= 'z':
		return int(head-'a') + 2, nil
	case head >= 'A' && head <= 'Z':
		return int('Z'-head) + 2, nil
	}
	return 0, fmt.Errorf("%w: head %q", ErrInvalidKey, head)
}

// Validate reports whether key is a well-formed ordering key.
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if key == smallestInteger {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	n, err := integerLength(key[0])
	if err != nil {
		return err
	}
	if n > len(key) {
		return fmt.Errorf("%w: %q is shorter than its integer part", ErrInvalidKey, key)
	}
	if i := strings.IndexFunc(key[1:], func(r rune) bool { return !strings.ContainsRune(digits, r) }); i >= 0 {
		return fmt.Errorf("%w: bad digit in %q", ErrInvalidKey, key)
	}
	if f := key[n:]; f != "" && f[len(f)-1] == '0' {
		return fmt.Errorf("%w: %q has a trailing zero", ErrInvalidKey, key)
	}
	return nil
}

func checkBounds(a, b string) error {
	if a != "" {
		if err := Validate(a); err != nil {
			return err
		}
	}
	if b != "" {
		if err := Validate(b); err != nil {
			return err
		}
	}
	if a != "" && b != "" && a >= b {
		return fmt.Errorf("%w: %q >= %q", ErrOrder, a, b)
	}
	return nil
}

// KeyBetween returns a key strictly between a and b. Either bound may be ""
// for unbounded.
func KeyBetween(a, b string) (string, error) {
	if err := checkBounds(a, b); err != nil {
		return "", err
	}
	k, err := fracdex.KeyBetween(a, b)
	if err != nil {
		return "", fmt.Errorf("fracindex: key between %q and %q: %w", a, b, err)
	}
	return k, nil
}

// KeysBetween returns n ascending keys strictly between a and b.
func KeysBetween(a, b string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := checkBounds(a, b); err != nil {
		return nil, err
	}
	keys, err := fracdex.NKeysBetween(a, b, uint(n))
	if err != nil {
		return nil, fmt.Errorf("fracindex: %d keys between %q and %q: %w", n, a, b, err)
	}
	return keys, nil
}
