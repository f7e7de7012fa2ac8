package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/walletcore/wallet-ledger/internal/logger"
	"github.com/walletcore/wallet-ledger/internal/models"
)

// WalletStore defines the wallet access the ledger engine needs. Locks
// acquired by LockForUpdate are held until the enclosing unit of work
// commits or rolls back; ids are locked in a single canonical order by
// every caller.
type WalletStore interface {
	LockForUpdate(ctx context.Context, walletIDs []uuid.UUID) ([]models.Wallet, error)                    // Locks wallets in ascending-id order
	ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)   // Applies a balance delta, non-negative guard
	GetByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)                              // Plain read without locking
}

// TransactionStore persists the durable transaction ledger.
type TransactionStore interface {
	Save(ctx context.Context, txn *models.Transaction) error                                              // Inserts a transaction with its snapshots
	GetByID(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)                    // Fetches a transaction
	UpdateStatus(ctx context.Context, txn *models.Transaction, to models.TransactionStatus) error         // Guarded monotonic status transition
	HasReversal(ctx context.Context, originalID uuid.UUID) (bool, error)                                  // Checks for an existing reversal
}

// EventStore appends to the immutable audit trail.
type EventStore interface {
	Append(ctx context.Context, event *models.TransactionEvent) error // Appends one audit event
}

// UnitOfWork runs a function inside an atomic all-or-nothing boundary.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// CodeGenerator produces human-facing transaction reference codes.
type CodeGenerator interface {
	Generate() string
}

// WalletCache caches wallets for the read path.
type WalletCache interface {
	GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallets(ctx context.Context, walletIDs ...uuid.UUID) error
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// LedgerService executes deposits, transfers, and reversals. Each
// operation runs in exactly one unit of work: wallet locks are taken in
// canonical order, balances are validated and mutated, and the
// transaction plus its audit events land atomically or not at all.
// Completed transactions are published to Kafka after commit.
type LedgerService struct {
	wallets     WalletStore
	txns        TransactionStore
	events      EventStore
	uow         UnitOfWork
	codes       CodeGenerator
	cache       WalletCache
	kafkaWriter KafkaWriter
}

// NewLedgerService creates a new LedgerService. cache and kafkaWriter may
// be nil; the corresponding side channels are then skipped.
func NewLedgerService(
	wallets WalletStore,
	txns TransactionStore,
	events EventStore,
	uow UnitOfWork,
	codes CodeGenerator,
	cache WalletCache,
	kafkaWriter KafkaWriter,
) *LedgerService {
	return &LedgerService{
		wallets:     wallets,
		txns:        txns,
		events:      events,
		uow:         uow,
		codes:       codes,
		cache:       cache,
		kafkaWriter: kafkaWriter,
	}
}

// newEvent builds an audit event for a status transition.
func newEvent(txn *models.Transaction, prev *models.TransactionStatus, next models.TransactionStatus, eventType models.TransactionEventType, actor *models.Actor) *models.TransactionEvent {
	event := &models.TransactionEvent{
		TransactionID:  txn.TransactionID,
		PreviousStatus: prev,
		NewStatus:      next,
		EventType:      eventType,
	}
	if actor != nil {
		event.ActorIP = &actor.IP
		event.ActorUserAgent = &actor.UserAgent
	}
	return event
}

// complete moves txn from processing to completed and appends the
// matching audit event.
func (s *LedgerService) complete(ctx context.Context, txn *models.Transaction, actor *models.Actor) error {
	prev := txn.Status
	if err := s.txns.UpdateStatus(ctx, txn, models.TransactionStatusCompleted); err != nil {
		return err
	}
	return s.events.Append(ctx, newEvent(txn, &prev, txn.Status, models.TransactionEventCompleted, actor))
}

// Deposit credits amount to a wallet and returns the completed
// transaction. Fails with models.ErrInvalidAmount, models.ErrWalletNotFound,
// or models.ErrWalletNotActive; nothing is persisted on failure.
func (s *LedgerService) Deposit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, description *string, actor *models.Actor) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, models.ErrInvalidAmount
	}

	var txn *models.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		wallets, err := s.wallets.LockForUpdate(ctx, []uuid.UUID{walletID})
		if err != nil {
			return err
		}
		wallet := wallets[0]
		if !wallet.IsActive() {
			return models.ErrWalletNotActive
		}

		previous := wallet.Balance
		txn = &models.Transaction{
			Code:                    s.codes.Generate(),
			Type:                    models.TransactionTypeDeposit,
			Status:                  models.TransactionStatusProcessing,
			ReceiverWalletID:        wallet.WalletID,
			ReceiverUserID:          wallet.UserID,
			ReceiverPreviousBalance: previous,
			ReceiverNewBalance:      previous.Add(amount),
			Amount:                  amount,
			Currency:                wallet.Currency,
			Description:             description,
		}
		if err := s.txns.Save(ctx, txn); err != nil {
			return err
		}
		if err := s.events.Append(ctx, newEvent(txn, nil, txn.Status, models.TransactionEventCreated, actor)); err != nil {
			return err
		}

		if _, err := s.wallets.ApplyDelta(ctx, wallet.WalletID, amount); err != nil {
			return err
		}

		return s.complete(ctx, txn, actor)
	})
	if err != nil {
		logger.Log.Errorw("deposit failed", "wallet_id", walletID, "amount", amount, "error", err)
		return nil, err
	}

	s.publishTransaction(ctx, txn)
	s.invalidateWallets(ctx, walletID)
	return txn, nil
}

// Transfer debits the sender and credits the receiver by the same amount
// and returns the completed transaction. The two wallets are locked in
// canonical ascending-id order regardless of which is the sender, so
// opposite concurrent transfers cannot deadlock. An insufficient sender
// balance rejects the transfer with no persisted record.
func (s *LedgerService) Transfer(ctx context.Context, senderWalletID, receiverWalletID uuid.UUID, amount decimal.Decimal, description *string, actor *models.Actor) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, models.ErrInvalidAmount
	}
	if senderWalletID == receiverWalletID {
		return nil, models.ErrSameWallet
	}

	var txn *models.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		wallets, err := s.wallets.LockForUpdate(ctx, []uuid.UUID{senderWalletID, receiverWalletID})
		if err != nil {
			return err
		}

		var sender, receiver models.Wallet
		for _, w := range wallets {
			switch w.WalletID {
			case senderWalletID:
				sender = w
			case receiverWalletID:
				receiver = w
			}
		}
		if !sender.IsActive() || !receiver.IsActive() {
			return models.ErrWalletNotActive
		}
		if sender.Currency != receiver.Currency {
			return models.ErrCurrencyMismatch
		}
		if sender.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}

		senderPrev := sender.Balance
		senderNew := senderPrev.Sub(amount)
		receiverPrev := receiver.Balance
		receiverNew := receiverPrev.Add(amount)

		txn = &models.Transaction{
			Code:                    s.codes.Generate(),
			Type:                    models.TransactionTypeTransfer,
			Status:                  models.TransactionStatusProcessing,
			SenderWalletID:          &sender.WalletID,
			SenderUserID:            &sender.UserID,
			SenderPreviousBalance:   &senderPrev,
			SenderNewBalance:        &senderNew,
			ReceiverWalletID:        receiver.WalletID,
			ReceiverUserID:          receiver.UserID,
			ReceiverPreviousBalance: receiverPrev,
			ReceiverNewBalance:      receiverNew,
			Amount:                  amount,
			Currency:                sender.Currency,
			Description:             description,
		}
		if err := s.txns.Save(ctx, txn); err != nil {
			return err
		}
		if err := s.events.Append(ctx, newEvent(txn, nil, txn.Status, models.TransactionEventCreated, actor)); err != nil {
			return err
		}

		if _, err := s.wallets.ApplyDelta(ctx, sender.WalletID, amount.Neg()); err != nil {
			return err
		}
		if _, err := s.wallets.ApplyDelta(ctx, receiver.WalletID, amount); err != nil {
			return err
		}

		return s.complete(ctx, txn, actor)
	})
	if err != nil {
		logger.Log.Errorw("transfer failed",
			"sender_wallet_id", senderWalletID, "receiver_wallet_id", receiverWalletID,
			"amount", amount, "error", err)
		return nil, err
	}

	s.publishTransaction(ctx, txn)
	s.invalidateWallets(ctx, senderWalletID, receiverWalletID)
	return txn, nil
}

// Reverse creates a compensating transaction that exactly negates a
// completed transfer: the original receiver is debited and the original
// sender credited by the original amount. The original transaction is
// marked reversed in the same unit of work. Only completed transfers that
// have not been reversed qualify; the debited wallet's current balance
// must still cover the amount.
func (s *LedgerService) Reverse(ctx context.Context, originalTransactionID uuid.UUID, reason string, reversalType models.ReversalType, actor *models.Actor) (*models.Transaction, error) {
	var reversal *models.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		original, err := s.txns.GetByID(ctx, originalTransactionID)
		if err != nil {
			return err
		}
		if !original.CanBeReversed() {
			return models.ErrNotReversible
		}
		exists, err := s.txns.HasReversal(ctx, original.TransactionID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrNotReversible
		}

		// Roles swap: the original receiver becomes the reversal's sender.
		debitedID := original.ReceiverWalletID
		creditedID := *original.SenderWalletID

		wallets, err := s.wallets.LockForUpdate(ctx, []uuid.UUID{debitedID, creditedID})
		if err != nil {
			return err
		}
		var debited, credited models.Wallet
		for _, w := range wallets {
			switch w.WalletID {
			case debitedID:
				debited = w
			case creditedID:
				credited = w
			}
		}

		// The debited balance may have moved since the original completed.
		if debited.Balance.LessThan(original.Amount) {
			return models.ErrInsufficientFundsForReversal
		}

		debitedPrev := debited.Balance
		debitedNew := debitedPrev.Sub(original.Amount)
		creditedPrev := credited.Balance
		creditedNew := creditedPrev.Add(original.Amount)

		description := fmt.Sprintf("%s reversal of %s", reversalType, original.Code)
		reversal = &models.Transaction{
			Code:                    s.codes.Generate(),
			Type:                    models.TransactionTypeReversal,
			Status:                  models.TransactionStatusProcessing,
			SenderWalletID:          &debited.WalletID,
			SenderUserID:            &debited.UserID,
			SenderPreviousBalance:   &debitedPrev,
			SenderNewBalance:        &debitedNew,
			ReceiverWalletID:        credited.WalletID,
			ReceiverUserID:          credited.UserID,
			ReceiverPreviousBalance: creditedPrev,
			ReceiverNewBalance:      creditedNew,
			Amount:                  original.Amount,
			Currency:                original.Currency,
			Description:             &description,
			ReversedTransactionID:   &original.TransactionID,
			ReversalReason:          &reason,
		}
		if err := s.txns.Save(ctx, reversal); err != nil {
			return err
		}
		if err := s.events.Append(ctx, newEvent(reversal, nil, reversal.Status, models.TransactionEventCreated, actor)); err != nil {
			return err
		}

		if _, err := s.wallets.ApplyDelta(ctx, debited.WalletID, original.Amount.Neg()); err != nil {
			return err
		}
		if _, err := s.wallets.ApplyDelta(ctx, credited.WalletID, original.Amount); err != nil {
			return err
		}

		if err := s.complete(ctx, reversal, actor); err != nil {
			return err
		}

		prev := original.Status
		if err := s.txns.UpdateStatus(ctx, original, models.TransactionStatusReversed); err != nil {
			return err
		}
		return s.events.Append(ctx, newEvent(original, &prev, original.Status, models.TransactionEventReversed, actor))
	})
	if err != nil {
		logger.Log.Errorw("reversal failed", "original_transaction_id", originalTransactionID, "error", err)
		return nil, err
	}

	s.publishTransaction(ctx, reversal)
	s.invalidateWallets(ctx, *reversal.SenderWalletID, reversal.ReceiverWalletID)
	return reversal, nil
}

// GetWallet returns a wallet, served from the cache when possible.
func (s *LedgerService) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	if s.cache != nil {
		if wallet, err := s.cache.GetWallet(ctx, walletID); err == nil {
			return wallet, nil
		}
	}

	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		logger.Log.Errorw("failed to get wallet", "wallet_id", walletID, "error", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetWallet(ctx, wallet); err != nil {
			logger.Log.Errorw("failed to cache wallet", "wallet_id", walletID, "error", err)
		}
	}
	return wallet, nil
}

// GetTransaction returns a transaction by id.
func (s *LedgerService) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	return s.txns.GetByID(ctx, transactionID)
}

// publishTransaction publishes a completed transaction to Kafka. Runs
// after commit; failures are logged and never affect the operation.
func (s *LedgerService) publishTransaction(ctx context.Context, txn *models.Transaction) {
	if s.kafkaWriter == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "transaction_id", txn.TransactionID)
		return
	}

	data, err := json.Marshal(txn)
	if err != nil {
		logger.Log.Errorw("Failed to marshal transaction for Kafka", "transaction_id", txn.TransactionID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(txn.TransactionID.String()),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish transaction to Kafka", "transaction_id", txn.TransactionID, "error", err)
	} else {
		logger.Log.Infow("Transaction published to Kafka", "transaction_id", txn.TransactionID, "amount", txn.Amount)
	}
}

// invalidateWallets drops cache entries for mutated wallets after commit.
func (s *LedgerService) invalidateWallets(ctx context.Context, walletIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWallets(ctx, walletIDs...); err != nil {
		logger.Log.Errorw("failed to invalidate wallet cache", "wallet_ids", walletIDs, "error", err)
	}
}
