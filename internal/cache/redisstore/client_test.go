package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestNew_RequiresAddress(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestReplaceHash_RoundTripAndReplace(t *testing.T) {
	rc, mr := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := rc.ReplaceHash(ctx, "snap:risk", map[string][]byte{
		"risk_1_2": []byte(`{"a":1}`),
		"risk_3_4": []byte(`{"a":2}`),
	}, 0)
	if err != nil {
		t.Fatalf("ReplaceHash: %v", err)
	}

	got, err := rc.HGetAll(ctx, "snap:risk")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(got) != 2 || string(got["risk_1_2"]) != `{"a":1}` {
		t.Fatalf("unexpected hash: %+v", got)
	}

	if err := rc.ReplaceHash(ctx, "snap:risk", map[string][]byte{"risk_5_6": []byte("{}")}, 0); err != nil {
		t.Fatalf("ReplaceHash: %v", err)
	}
	keys, _ := mr.HKeys("snap:risk")
	if len(keys) != 1 || keys[0] != "risk_5_6" {
		t.Fatalf("old fields must be dropped on replace; got %v", keys)
	}

	if err := rc.ReplaceHash(ctx, "snap:risk", nil, 0); err != nil {
		t.Fatalf("ReplaceHash empty: %v", err)
	}
	if mr.Exists("snap:risk") {
		t.Fatalf("empty replace must delete the hash")
	}
}

func TestHGetAll_MissingKeyIsEmpty(t *testing.T) {
	rc, _ := newMini(t)
	got, err := rc.HGetAll(context.Background(), "nope")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty map, got %v", got)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.ReplaceHash(ctx, "k", map[string][]byte{"f": []byte("v")}, time.Second); err == nil {
		t.Fatalf("expected error on ReplaceHash with canceled context")
	}
	if _, err := rc.HGetAll(ctx, "k"); err == nil {
		t.Fatalf("expected error on HGetAll with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}
