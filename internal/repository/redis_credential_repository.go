package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	pkgredis "github.com/prohmpiriya/eventic-admission/pkg/redis"
)

//go:embed scripts/store_credential.lua
var storeCredentialScript string

const (
	scriptStoreCredential = "store_credential"

	credentialTokenKeyPrefix  = "credential:token:"
	credentialPINKeyPrefix    = "credential:pin:"
	credentialTicketKeyPrefix = "credential:ticket:"
)

// RedisCredentialRepository implements CredentialRepository using Redis.
// Records outlive ExpiresAt by the retention window so stale codes resolve
// as expired instead of unknown.
type RedisCredentialRepository struct {
	client *pkgredis.Client
}

// NewRedisCredentialRepository creates a new RedisCredentialRepository
func NewRedisCredentialRepository(client *pkgredis.Client) *RedisCredentialRepository {
	return &RedisCredentialRepository{client: client}
}

// LoadScripts preloads the Lua scripts
func (r *RedisCredentialRepository) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptStoreCredential, storeCredentialScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptStoreCredential, err)
	}
	return nil
}

// Save stores the credential and revokes the ticket's previous one
func (r *RedisCredentialRepository) Save(ctx context.Context, cred *domain.Credential, retain time.Duration) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	keys := []string{
		credentialTokenKeyPrefix + cred.Token,
		credentialPINKeyPrefix + cred.PIN,
		credentialTicketKeyPrefix + cred.TicketID,
	}
	args := []interface{}{
		string(data),          // ARGV[1]: credential
		retain.Milliseconds(), // ARGV[2]: retention_ms
		cred.TicketID,         // ARGV[3]: ticket_id
		cred.Token,            // ARGV[4]: token
		cred.PIN,              // ARGV[5]: pin
	}

	result := r.client.EvalWithFallback(ctx, scriptStoreCredential, storeCredentialScript, keys, args...)
	if result.Err() != nil {
		return fmt.Errorf("failed to execute store_credential script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		return fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 2 {
		return fmt.Errorf("unexpected script result length: %d", len(values))
	}

	if ok, _ := values[0].(int64); ok == 1 {
		return nil
	}
	if code, _ := values[1].(string); code == "PIN_TAKEN" {
		return domain.ErrPINCollision
	}
	return fmt.Errorf("store_credential failed: %v", values[1])
}

// GetByToken resolves a scan token
func (r *RedisCredentialRepository) GetByToken(ctx context.Context, token string) (*domain.Credential, error) {
	return r.get(ctx, credentialTokenKeyPrefix+token)
}

// GetByPIN resolves a manual PIN
func (r *RedisCredentialRepository) GetByPIN(ctx context.Context, pin string) (*domain.Credential, error) {
	return r.get(ctx, credentialPINKeyPrefix+pin)
}

func (r *RedisCredentialRepository) get(ctx context.Context, key string) (*domain.Credential, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	return &cred, nil
}

// Ensure RedisCredentialRepository implements CredentialRepository
var _ CredentialRepository = (*RedisCredentialRepository)(nil)
