// Package testutil provides mocks and fixtures shared by the engine's
// package tests.
package testutil

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/snipeworks/solana-sniper/pkg/types"
)

var (
	// ErrNoPriceConfigured means the mock price source has no price for
	// the requested token.
	ErrNoPriceConfigured = errors.New("no price configured")

	// ErrNoAccountConfigured means the mock account fetcher has no data
	// for the requested address.
	ErrNoAccountConfigured = errors.New("no account configured")
)

// RandomAddress returns a fresh base58 public key string.
func RandomAddress() string {
	return solanago.NewWallet().PublicKey().String()
}

// CreateTestCandidate creates a candidate for the given token address.
func CreateTestCandidate(tokenAddress, symbol string, priceUSD float64) *types.Candidate {
	return &types.Candidate{
		TokenAddress: tokenAddress,
		Symbol:       symbol,
		Name:         "Test " + symbol,
		PriceUSD:     priceUSD,
		LiquidityUSD: 50000,
		Volume24hUSD: 120000,
		Confidence:   0.8,
		RiskScore:    0.3,
		Reasoning:    "test candidate",
	}
}

// CreateTestPosition creates an open position for the given token address.
func CreateTestPosition(tokenAddress, symbol string, entryPrice float64, status types.PositionStatus) *types.Position {
	now := time.Now().UTC()
	return &types.Position{
		TokenAddress: tokenAddress,
		Symbol:       symbol,
		EntryTime:    now,
		EntryPrice:   entryPrice,
		AmountSOL:    0.1,
		AmountTokens: 1000000,
		Signature:    "test-signature-" + symbol,
		HighestPrice: entryPrice,
		CurrentPrice: entryPrice,
		LastUpdate:   now,
		Status:       status,
	}
}

// MintAccountData builds an 82-byte SPL mint account image with the
// requested authority discriminants.
func MintAccountData(mintAuthority, freezeAuthority bool) []byte {
	data := make([]byte, 82)
	data[44] = 9 // decimals
	data[45] = 1 // initialized

	if mintAuthority {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		for i := 4; i < 36; i++ {
			data[i] = 0x11
		}
	}
	if freezeAuthority {
		binary.LittleEndian.PutUint32(data[46:50], 1)
		for i := 50; i < 82; i++ {
			data[i] = 0x22
		}
	}
	return data
}

// UnsignedTransactionBase64 builds a minimal unsigned transaction with
// the payer as fee payer, serialized the way the aggregator's build
// endpoint returns transactions.
func UnsignedTransactionBase64(payer solanago.PublicKey) string {
	ix := system.NewTransferInstruction(1, payer, payer).Build()
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{ix},
		solanago.Hash{},
		solanago.TransactionPayer(payer),
	)
	if err != nil {
		panic(err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}
