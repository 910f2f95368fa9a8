package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the claim only while it is still held by ARGV[1],
// so an expired claim taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func claimKey(sig confirmation.Signature) string {
	return fmt.Sprintf("%s:claim:%s", keyPrefix, sig)
}

// ClaimSignature takes the claim with SET NX. It returns
// txwatch.ErrAlreadyTracking when the key already exists.
func (c *client) ClaimSignature(ctx context.Context, sig confirmation.Signature, ttl time.Duration) error {
	ok, err := c.conn.SetNX(ctx, claimKey(sig), c.holder, ttl).Result()
	if err != nil {
		return err
	}

	if !ok {
		return txwatch.ErrAlreadyTracking
	}

	return nil
}

// ReleaseSignature drops the claim if this client still holds it.
func (c *client) ReleaseSignature(ctx context.Context, sig confirmation.Signature) error {
	return releaseScript.Run(ctx, c.conn, []string{claimKey(sig)}, c.holder).Err()
}

var _ txwatch.ClaimGuard = new(client)
