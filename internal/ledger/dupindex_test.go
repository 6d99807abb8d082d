package ledger

import (
	"context"
	"testing"
)

func openTestIndex(t *testing.T) *HashIndex {
	t.Helper()
	idx, err := OpenHashIndex(":memory:", nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestHashIndex_RecordAndCheck(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	const hash = "sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	res, err := idx.CheckDuplicate(ctx, hash)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.IsDuplicate {
		t.Fatal("unseen hash reported as duplicate")
	}

	if err := idx.RecordHash(ctx, hash); err != nil {
		t.Fatalf("record: %v", err)
	}

	res, err = idx.CheckDuplicate(ctx, hash)
	if err != nil {
		t.Fatalf("check after record: %v", err)
	}
	if !res.IsDuplicate {
		t.Fatal("recorded hash not reported as duplicate")
	}
	if res.FirstSeenAt == nil {
		t.Error("duplicate result missing first-seen timestamp")
	}
	if res.Message == "" {
		t.Error("duplicate result missing message")
	}
}

func TestHashIndex_RecordIdempotent(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	const hash = "sha256:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	if err := idx.RecordHash(ctx, hash); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := idx.RecordHash(ctx, hash); err != nil {
		t.Fatalf("second record must be a no-op, got: %v", err)
	}
}

func TestHashIndex_DistinctHashes(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.RecordHash(ctx, "sha256:cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"); err != nil {
		t.Fatalf("record: %v", err)
	}
	res, err := idx.CheckDuplicate(ctx, "sha256:dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.IsDuplicate {
		t.Error("different hash reported as duplicate")
	}
}

func TestNoopChecker(t *testing.T) {
	var checker NoopChecker
	ctx := context.Background()

	res, err := checker.CheckDuplicate(ctx, "sha256:ffff")
	if err != nil || res.IsDuplicate {
		t.Errorf("noop checker must never flag duplicates: %+v, %v", res, err)
	}
	if err := checker.RecordHash(ctx, "sha256:ffff"); err != nil {
		t.Errorf("noop record: %v", err)
	}
}
