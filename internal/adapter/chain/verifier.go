package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

const bpsDenominator = 10_000

// Verifier implements ports.ChainVerifier against an Ethereum RPC endpoint.
// The endpoint is expected to serve preconfirmation receipts: a receipt exists
// as soon as the relay commits to inclusion, so a missing receipt means
// not-found rather than pending.
type Verifier struct {
	client           Client
	minConfirmations uint64
	timeout          time.Duration
	log              zerolog.Logger
}

// NewVerifier creates a new Verifier.
func NewVerifier(client Client, minConfirmations uint64, timeout time.Duration, log zerolog.Logger) *Verifier {
	return &Verifier{
		client:           client,
		minConfirmations: minConfirmations,
		timeout:          timeout,
		log:              log,
	}
}

// Verify checks a claimed payment transaction against the expected sender,
// recipient, and amount. Ambiguity fails closed: any RPC trouble produces an
// invalid, revoked result.
func (v *Verifier) Verify(ctx context.Context, p ports.VerifyParams) domain.VerificationResult {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	hash := common.HexToHash(p.TxHash)

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return domain.Invalid("transaction not found")
		}
		v.log.Error().Err(err).Str("tx_hash", p.TxHash).Msg("fetch receipt")
		return domain.Invalid(fmt.Sprintf("chain rpc error: %v", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Invalid("transaction execution failed")
	}

	tx, _, err := v.client.TransactionByHash(ctx, hash)
	if err != nil {
		v.log.Error().Err(err).Str("tx_hash", p.TxHash).Msg("fetch transaction")
		return domain.Invalid(fmt.Sprintf("chain rpc error: %v", err))
	}

	from, err := v.client.TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
	if err != nil {
		v.log.Error().Err(err).Str("tx_hash", p.TxHash).Msg("derive sender")
		return domain.Invalid(fmt.Sprintf("chain rpc error: %v", err))
	}
	if !strings.EqualFold(from.Hex(), p.ExpectedFrom) {
		return domain.Invalid("transaction sender does not match wallet address")
	}

	to := tx.To()
	if to == nil {
		return domain.Invalid("transaction has no recipient")
	}
	if !strings.EqualFold(to.Hex(), p.ExpectedTo) {
		return domain.Invalid("transaction recipient does not match payout address")
	}

	// One-sided tolerance: the floor relaxes, the ceiling never does.
	minAmount := new(big.Int).Mul(p.ExpectedAmount, big.NewInt(bpsDenominator-p.SlippageBps))
	minAmount.Quo(minAmount, big.NewInt(bpsDenominator))
	if tx.Value().Cmp(minAmount) < 0 {
		return domain.Invalid("transaction value below expected amount")
	}

	head, err := v.client.BlockNumber(ctx)
	if err != nil {
		v.log.Error().Err(err).Str("tx_hash", p.TxHash).Msg("fetch block height")
		return domain.Invalid(fmt.Sprintf("chain rpc error: %v", err))
	}
	blockNumber, confirmations := depth(receipt, head)

	status := domain.StatusPreconfirmed
	if confirmations >= v.minConfirmations {
		status = domain.StatusConfirmed
	}

	return domain.VerificationResult{
		Valid:  true,
		Status: status,
		Details: &domain.TxDetails{
			From:          strings.ToLower(from.Hex()),
			To:            strings.ToLower(to.Hex()),
			Value:         tx.Value(),
			BlockNumber:   blockNumber,
			Confirmations: confirmations,
		},
	}
}

// Reverify re-checks execution success and confirmation depth only. Errors
// yield preconfirmed, never revoked: a transient RPC failure during a
// background sweep must not revoke a legitimate purchase. Only an explicit
// on-chain execution failure revokes.
func (v *Verifier) Reverify(ctx context.Context, txHash string) domain.ConfirmationStatus {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	receipt, err := v.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		v.log.Warn().Err(err).Str("tx_hash", txHash).Msg("reverify receipt fetch failed")
		return domain.StatusPreconfirmed
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.StatusRevoked
	}

	head, err := v.client.BlockNumber(ctx)
	if err != nil {
		v.log.Warn().Err(err).Str("tx_hash", txHash).Msg("reverify block height fetch failed")
		return domain.StatusPreconfirmed
	}
	if _, confirmations := depth(receipt, head); confirmations >= v.minConfirmations {
		return domain.StatusConfirmed
	}
	return domain.StatusPreconfirmed
}

// depth computes confirmation depth as head minus receipt block, floored at
// zero to guard against reorg edge cases where head can trail the receipt.
func depth(receipt *types.Receipt, head uint64) (blockNumber, confirmations uint64) {
	if receipt.BlockNumber == nil {
		return 0, 0
	}
	blockNumber = receipt.BlockNumber.Uint64()
	if head > blockNumber {
		confirmations = head - blockNumber
	}
	return blockNumber, confirmations
}
