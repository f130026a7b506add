// Package form validates the send tokens input before it reaches the sender.
package form

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// AddressLength is the length of a recipient address in hex characters.
const AddressLength = 40

var (
	ErrRecipientRequired = errors.New("recipient is required")
	ErrInvalidRecipient  = errors.New("invalid recipient address")
	ErrAmountRequired    = errors.New("amount is required")
	ErrInvalidAmount     = errors.New("amount must be a positive integer")
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// SendForm holds the recipient and amount fields of the send page.
type SendForm struct {
	mu     sync.Mutex
	to     string
	tokens string
	err    error
}

func New() *SendForm {
	return &SendForm{}
}

// SetRecipient updates the recipient field. A value that is not hex or is
// longer than an address is rejected and the field is cleared.
func (f *SendForm) SetRecipient(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if value == "" {
		f.to = ""
		return
	}

	if !hexPattern.MatchString(value) || len(value) > AddressLength {
		f.err = ErrInvalidRecipient
		f.to = ""
		return
	}
	f.err = nil
	f.to = value
}

// SetTokens stores the amount input; Validate parses it.
func (f *SendForm) SetTokens(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = strings.TrimSpace(value)
}

func (f *SendForm) Recipient() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.to
}

// Error returns the last recipient input error, if any.
func (f *SendForm) Error() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Validate returns the recipient and amount once both fields are valid.
// The recipient must be exactly AddressLength hex characters.
func (f *SendForm) Validate() (string, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", 0, f.err
	}
	if f.to == "" {
		return "", 0, ErrRecipientRequired
	}
	if err := ValidateRecipient(f.to); err != nil {
		return "", 0, err
	}

	if f.tokens == "" {
		return "", 0, ErrAmountRequired
	}
	amount, err := ParseAmount(f.tokens)
	if err != nil {
		return "", 0, err
	}
	return f.to, amount, nil
}

// ValidateRecipient checks value is an address of exactly AddressLength hex characters.
func ValidateRecipient(value string) error {
	if value == "" {
		return ErrRecipientRequired
	}
	if len(value) != AddressLength || !hexPattern.MatchString(value) {
		return ErrInvalidRecipient
	}
	return nil
}

// ParseAmount parses a positive base-10 token amount.
func ParseAmount(value string) (uint64, error) {
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil || amount == 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
