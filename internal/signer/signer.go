// Package signer hashes and signs transactions with secp256k1 keys.
package signer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ethereum/go-ethereum/crypto"
	"strings"
	"wallet/internal/models"
)

var (
	ErrInvalidKey       = errors.New("invalid private key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignerMismatch   = errors.New("signature does not match sender")
)

// Signer attaches hash and signature to a transaction in place.
type Signer interface {
	HashAndSign(privateKey string, tx *models.Transaction) error
}

type KeySigner struct{}

func New() *KeySigner {
	return &KeySigner{}
}

// payload is the signed part of a transaction.
type payload struct {
	Type  models.TransactionType `json:"type"`
	From  string                 `json:"from"`
	To    string                 `json:"to"`
	Value uint64                 `json:"value"`
}

// Hash returns the Keccak-256 hash of the canonical transaction payload.
func Hash(tx models.Transaction) ([]byte, error) {
	data, err := json.Marshal(payload{
		Type:  tx.Type,
		From:  tx.From,
		To:    tx.To,
		Value: tx.Value,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(data), nil
}

func (s *KeySigner) HashAndSign(privateKey string, tx *models.Transaction) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	hash, err := Hash(*tx)
	if err != nil {
		return fmt.Errorf("failed to hash transaction: %w", err)
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	tx.Hash = hex.EncodeToString(hash)
	tx.Signature = hex.EncodeToString(sig)
	return nil
}

// AddressFromKey derives the 40 character lowercase hex address of a key.
func AddressFromKey(privateKey string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return hex.EncodeToString(crypto.PubkeyToAddress(key.PublicKey).Bytes()), nil
}

// Verify checks that tx carries a valid signature made by tx.From.
func Verify(tx models.Transaction) error {
	hash, err := Hash(tx)
	if err != nil {
		return err
	}

	if tx.Hash != hex.EncodeToString(hash) {
		return fmt.Errorf("%w: hash mismatch", ErrInvalidSignature)
	}

	sig, err := hex.DecodeString(tx.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	from, err := hex.DecodeString(tx.From)
	if err != nil || !bytes.Equal(from, crypto.PubkeyToAddress(*pub).Bytes()) {
		return ErrSignerMismatch
	}
	return nil
}
