// Package services contains the send tokens flow.
//
//   - Builder assembles and signs a transfer transaction
//   - Sender submits it, polls its status and notifies the user
package services

import (
	"fmt"
	"wallet/internal/models"
	"wallet/internal/signer"
)

// Builder creates signed transfer transactions. Inputs are expected to be
// validated by the form layer already.
type Builder struct {
	signer signer.Signer
}

func NewBuilder(signer signer.Signer) *Builder {
	return &Builder{signer: signer}
}

// Build returns a TransferTokens transaction from account to the recipient,
// signed with the account key. The returned value is a copy, so later changes
// by the caller cannot alter what gets submitted.
func (b *Builder) Build(account models.Account, to string, value uint64) (models.Transaction, error) {
	tx := models.Transaction{
		Type:  models.TransferTokens,
		From:  account.Address,
		To:    to,
		Value: value,
	}

	if err := b.signer.HashAndSign(account.PrivateKey, &tx); err != nil {
		return models.Transaction{}, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}
