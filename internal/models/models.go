// Package models contains the data structures shared by the wallet components.
package models

import "time"

type TransactionType string

const (
	TransferTokens TransactionType = "TransferTokens"
)

// Transaction is a value transfer broadcast to the network.
// Hash and Signature are attached by the signer only.
type Transaction struct {
	Type      TransactionType `json:"type"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Value     uint64          `json:"value"`
	Hash      string          `json:"hash,omitempty"`
	Signature string          `json:"signature,omitempty"`
}

type Endpoint struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port,omitempty" mapstructure:"port"`
}

// Node is a network peer reachable over its HTTP API.
type Node struct {
	Address  string   `json:"address" mapstructure:"address"`
	Endpoint Endpoint `json:"endpoint" mapstructure:"endpoint"`
}

type Account struct {
	Address    string `json:"address" mapstructure:"address"`
	PrivateKey string `json:"-" mapstructure:"private_key"`
}

const (
	StatusPending = "Pending"
	StatusOk      = "Ok"
)

type SubmitResponse struct {
	ID string `json:"id"`
}

// StatusResponse is reported by the node for a submitted transaction.
// Any status other than Pending is terminal; anything other than Ok is an error message.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Position string

const (
	PositionTop    Position = "top"
	PositionMiddle Position = "middle"
	PositionBottom Position = "bottom"
)

type Toast struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	Position  Position      `json:"position"`
	CreatedAt time.Time     `json:"created_at"`
}

// ExpiresAt returns the moment the toast stops being displayed.
func (t Toast) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.Duration)
}
