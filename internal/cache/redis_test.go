package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	key := ShortCodeKey("test-" + time.Now().Format("150405.000000"))
	if ok, err := c.Exists(ctx, key); err != nil || ok {
		t.Errorf("Exists before Set = %v, %v", ok, err)
	}

	if err := c.Set(ctx, key, "taken", time.Minute); err != nil {
		t.Fatal(err)
	}
	if ok, err := c.Exists(ctx, key); err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Exists(ctx, key); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestShortCodeKey(t *testing.T) {
	if got := ShortCodeKey("abc123"); got != "shortcode:abc123" {
		t.Errorf("ShortCodeKey = %q", got)
	}
}
