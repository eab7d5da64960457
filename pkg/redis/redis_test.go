package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.EnableTracing)
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "redis.example.com", Port: 6380}
	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "invalid-host-that-does-not-exist",
		Port:          9999,
		MaxRetries:    0,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, cfg)
	assert.Error(t, err)
}

func TestComputeSHA1(t *testing.T) {
	sha := computeSHA1("return 1")
	assert.Len(t, sha, 40)
	assert.Equal(t, sha, computeSHA1("return 1"))
	assert.NotEqual(t, sha, computeSHA1("return 2"))
	assert.Equal(t, sha, ScriptSHA("return 1"))
}

func TestIsNoScriptError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("some error"), false},
		{errors.New("NOSCRIPT No matching script. Please use EVAL."), true},
		{errors.New("NOSCRIPT some other message"), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isNoScriptError(tt.err), "err=%v", tt.err)
	}
}

func TestEvalWithFallback_LoadsScriptOnFirstUse(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	client := NewFromClient(db)
	script := "return ARGV[1]"
	sha := computeSHA1(script)

	mock.ExpectScriptLoad(script).SetVal(sha)
	mock.ExpectEvalSha(sha, []string{"k"}, "v").SetVal("v")

	val, err := client.EvalWithFallback(context.Background(), "echo", script, []string{"k"}, "v").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	cached, ok := client.GetScriptSHA("echo")
	assert.True(t, ok)
	assert.Equal(t, sha, cached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvalWithFallback_ReloadsAfterNoScript(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	client := NewFromClient(db)
	script := "return 1"
	sha := computeSHA1(script)

	mock.ExpectScriptLoad(script).SetVal(sha)
	mock.ExpectEvalSha(sha, []string{}).SetVal(int64(1))
	mock.ExpectEvalSha(sha, []string{}).SetErr(errors.New("NOSCRIPT No matching script. Please use EVAL."))
	mock.ExpectScriptLoad(script).SetVal(sha)
	mock.ExpectEvalSha(sha, []string{}).SetVal(int64(1))

	ctx := context.Background()
	_, err := client.EvalWithFallback(ctx, "one", script, []string{}).Result()
	require.NoError(t, err)

	val, err := client.EvalWithFallback(ctx, "one", script, []string{}).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Integration tests - require Redis to be running

func TestNewClient_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}

	ctx := context.Background()
	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.HealthCheck(ctx))
}
