// Package challenge provides the PIN gate guarding irreversible cancellations.
package challenge

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"
)

// PINLength is the number of digits in a PIN.
const PINLength = 4

// Errors
var (
	ErrInvalidDigit = errors.New("not a digit")
	ErrInvalidPIN   = errors.New("pin must be exactly 4 digits")
	ErrInvalidHash  = errors.New("invalid pin hash")
)

// Outcome is the result of entering a digit.
type Outcome int

const (
	OutcomeIgnored  Outcome = iota // Challenge closed, digit dropped
	OutcomePending                 // Digit buffered, more needed
	OutcomeMatch                   // Buffer compared and matched
	OutcomeMismatch                // Buffer compared and did not match
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomePending:
		return "pending"
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Challenge buffers PIN digits and compares them against a bcrypt hash once
// PINLength digits have been entered. The buffer is empty after every comparison.
type Challenge struct {
	hash        []byte
	entered     []byte
	open        bool
	errorFlag   bool
	comparisons int
}

// New creates a closed challenge for the given bcrypt hash.
func New(hash string) (*Challenge, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, errors.Wrap(ErrInvalidHash, err.Error())
	}
	return &Challenge{
		hash:    []byte(hash),
		entered: make([]byte, 0, PINLength),
	}, nil
}

// HashPIN validates pin and returns its bcrypt hash.
// A cost below bcrypt.MinCost selects bcrypt.DefaultCost.
func HashPIN(pin string, cost int) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash pin")
	}
	return string(hash), nil
}

// ValidatePIN checks that pin is exactly PINLength ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(pin); i++ {
		if !isDigit(pin[i]) {
			return ErrInvalidPIN
		}
	}
	return nil
}

// Open starts accepting digits. Opening an open challenge keeps its buffer.
func (c *Challenge) Open() {
	if c.open {
		return
	}
	c.open = true
	c.entered = c.entered[:0]
}

// Close stops accepting digits and clears the buffer and error flag.
func (c *Challenge) Close() {
	c.open = false
	c.errorFlag = false
	c.entered = c.entered[:0]
}

// PushDigit appends one digit. The PINLength-th digit triggers exactly one
// comparison, after which the buffer is cleared.
func (c *Challenge) PushDigit(d rune) (Outcome, error) {
	if d > 0x7f || !isDigit(byte(d)) {
		return OutcomeIgnored, errors.Wrapf(ErrInvalidDigit, "%q", d)
	}
	if !c.open {
		return OutcomeIgnored, nil
	}

	c.entered = append(c.entered, byte(d))
	if len(c.entered) < PINLength {
		return OutcomePending, nil
	}

	c.comparisons++
	err := bcrypt.CompareHashAndPassword(c.hash, c.entered)
	c.entered = c.entered[:0]

	if err != nil {
		c.errorFlag = true
		return OutcomeMismatch, nil
	}
	c.errorFlag = false
	return OutcomeMatch, nil
}

// Submit enters code digit by digit and returns the outcome of the last digit
// consumed. Digits after a comparison are dropped.
func (c *Challenge) Submit(code string) (Outcome, error) {
	for _, d := range code {
		if d > 0x7f || !isDigit(byte(d)) {
			return OutcomeIgnored, errors.Wrapf(ErrInvalidDigit, "%q", d)
		}
	}

	outcome := OutcomeIgnored
	for _, d := range code {
		var err error
		outcome, err = c.PushDigit(d)
		if err != nil {
			return outcome, err
		}
		if outcome == OutcomeMatch || outcome == OutcomeMismatch || outcome == OutcomeIgnored {
			break
		}
	}
	return outcome, nil
}

// ClearError resets the mismatch flag.
func (c *Challenge) ClearError() {
	c.errorFlag = false
}

// IsOpen reports whether digits are accepted.
func (c *Challenge) IsOpen() bool {
	return c.open
}

// ErrorFlag reports whether the last comparison failed.
func (c *Challenge) ErrorFlag() bool {
	return c.errorFlag
}

// Entered returns the number of buffered digits.
func (c *Challenge) Entered() int {
	return len(c.entered)
}

// Comparisons returns how many comparisons have run.
func (c *Challenge) Comparisons() int {
	return c.comparisons
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
