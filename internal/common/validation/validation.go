package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	MaxURLLength   = 2048
	MaxEmailLength = 254
)

// ValidateSourceURL accepts absolute http(s) URLs with a host.
func ValidateSourceURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}
	if len(raw) > MaxURLLength {
		return nil, fmt.Errorf("url cannot exceed %d characters", MaxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("url is malformed: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url scheme must be http or https")
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url must include a host")
	}
	return u, nil
}

// NormalizeWallet validates an EVM address and returns its EIP-55 form.
// Every address that reaches the store goes through here, so lookups by
// creator are exact-match.
func NormalizeWallet(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("wallet address cannot be empty")
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("wallet address %q is not a valid EVM address", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// ValidateEmail checks an optional email; empty is allowed.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email cannot exceed %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not valid", email)
	}
	return nil
}
