package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"herdcore/internal/blob/core"
)

func TestFakeBucketRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFake()
	if store.Driver() != core.DriverS3 || store.Bucket() != fakeBucket {
		t.Fatalf("unexpected store identity")
	}

	info, err := store.Put(ctx, "snapshots/t1/animals.json", bytes.NewReader([]byte(`{"a":1}`)), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"bucket": "animals"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ContentType != "application/json" || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "snapshots/t1/animals.json", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "snapshots/t1/animals.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"a":1}` || got.Metadata["bucket"] != "animals" {
		t.Fatalf("unexpected object %q %+v", body, got)
	}

	if _, err := store.Put(ctx, "snapshots/t2/animals.json", bytes.NewReader([]byte("[]")), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if _, err := store.Put(ctx, "other/x", bytes.NewReader([]byte("[]")), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/t1/animals.json" || list[1].Size != 2 {
		t.Fatalf("unexpected list %+v", list)
	}

	if ok, err := store.Delete(ctx, "snapshots/t1/animals.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "snapshots/t1/animals.json"); err != nil || ok {
		t.Fatalf("second delete should report false, got %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "snapshots/t1/animals.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on get, got %v", err)
	}
	if _, err := store.Head(ctx, "snapshots/t1/animals.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on head, got %v", err)
	}
}

func TestPresignURL(t *testing.T) {
	store := NewFake()
	url, err := store.PresignURL(context.Background(), "snapshots/t1/animals.json", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "X-Amz-Expires=60") || !strings.Contains(url, "snapshots/t1/animals.json") {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}
