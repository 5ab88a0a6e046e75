// Package nodeid leases a unique node component for core.IdGenerator
// across processes that share a single durable backend, using a Redis
// distributed lock so two processes never generate ids under the same
// node value at once.
package nodeid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxNode       = 1<<16 - 1
	keyPrefix     = "msgstore:nodeid:"
	defaultTTL    = 30 * time.Second
	acquireBudget = 5 * time.Second
)

// Lease holds a node id for the process's lifetime and must be released
// on shutdown so the value can be reused by the next process.
type Lease struct {
	client *redis.Client
	node   uint16
	key    string
	value  string
	logger *slog.Logger
}

// Acquire scans node values 0..max looking for one not currently locked
// in Redis, claims it with SET NX, and returns a Lease holding it. A max
// of 0 scans the full uint16 range.
func Acquire(ctx context.Context, client *redis.Client, max uint16, logger *slog.Logger) (*Lease, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if max == 0 {
		max = maxNode
	}
	value := uniqueValue()

	for node := uint16(0); node <= max; node++ {
		key := fmt.Sprintf("%s%d", keyPrefix, node)
		acquireCtx, cancel := context.WithTimeout(ctx, acquireBudget)
		ok, err := client.SetNX(acquireCtx, key, value, defaultTTL).Result()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("nodeid: acquire node %d: %w", node, err)
		}
		if ok {
			logger.Info("leased node id", "node", node)
			lease := &Lease{client: client, node: node, key: key, value: value, logger: logger}
			return lease, nil
		}
		if node == max {
			break
		}
	}
	return nil, fmt.Errorf("nodeid: no free node id in range [0,%d]", max)
}

// Node returns the leased node value, to be passed to core.NewIdGenerator.
func (l *Lease) Node() uint16 {
	return l.node
}

// Renew extends the lease's TTL; call periodically from a background
// goroutine so a live process never loses its node to expiry.
func (l *Lease) Renew(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("expire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
	renewCtx, cancel := context.WithTimeout(ctx, acquireBudget)
	defer cancel()
	result, err := l.client.Eval(renewCtx, script, []string{l.key}, l.value, int(defaultTTL.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("nodeid: renew node %d: %w", l.node, err)
	}
	if n, ok := result.(int64); !ok || n != 1 {
		return fmt.Errorf("nodeid: lease for node %d lost before renewal", l.node)
	}
	return nil
}

// Release frees the node value for reuse by another process.
func (l *Lease) Release(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	releaseCtx, cancel := context.WithTimeout(ctx, acquireBudget)
	defer cancel()
	if _, err := l.client.Eval(releaseCtx, script, []string{l.key}, l.value).Result(); err != nil {
		return fmt.Errorf("nodeid: release node %d: %w", l.node, err)
	}
	l.logger.Info("released node id", "node", l.node)
	return nil
}

func uniqueValue() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("nodeid_%d", time.Now().UnixNano())
	}
	return "nodeid_" + hex.EncodeToString(buf)
}
