package user

import "time"

// Profile is a wallet holder known to the service. Identity is the wallet.
type Profile struct {
	WalletAddress string    `json:"wallet_address"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
