package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/walletcore/wallet-ledger/internal/logger"
	"github.com/walletcore/wallet-ledger/internal/models"
)

// WalletCacheRepository caches wallet rows in Redis for the read path.
// The ledger engine invalidates entries after every committed mutation,
// so cached balances are at worst one TTL stale for wallets mutated by
// other writers.
type WalletCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached wallets
}

// NewWalletCacheRepository creates a new repository instance with optional TTL
func NewWalletCacheRepository(client *redis.Client, expiration time.Duration) *WalletCacheRepository {
	return &WalletCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func walletKey(walletID uuid.UUID) string {
	return fmt.Sprintf("wallet:%s", walletID)
}

// GetWallet fetches a cached wallet. A cache miss returns an error.
func (r *WalletCacheRepository) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	key := walletKey(walletID)

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		logger.Log.Infow(
			"key", key,
			"error", err,
		)
		if err == redis.Nil {
			return nil, fmt.Errorf("wallet %s not found in cache", walletID)
		}
		return nil, err
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(val), &wallet); err != nil {
		logger.Log.Infow(
			"key", key,
			"value", val,
			"error", err,
		)
		return nil, err
	}

	logger.Log.Infow(
		"key", key,
		"result", wallet.WalletID,
		"error", nil,
	)

	return &wallet, nil
}

// SetWallet caches a wallet with the configured expiration.
func (r *WalletCacheRepository) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	key := walletKey(wallet.WalletID)

	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, key, data, r.exp).Err()

	logger.Log.Infow(
		"key", key,
		"result", "ok",
		"error", err,
	)

	return err
}

// InvalidateWallets drops cached entries for the given wallets.
func (r *WalletCacheRepository) InvalidateWallets(ctx context.Context, walletIDs ...uuid.UUID) error {
	if len(walletIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(walletIDs))
	for _, id := range walletIDs {
		keys = append(keys, walletKey(id))
	}

	err := r.client.Del(ctx, keys...).Err()

	logger.Log.Infow(
		"keys", keys,
		"error", err,
	)

	return err
}
