package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

func TestBucketServiceEmulatorMediaLifecycle(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("FM_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set FM_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	if !isEmulatorReachable(emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	suffix := time.Now().UnixNano()
	bucketName := fmt.Sprintf("fm-it-media-%d", suffix)
	createBucketIfMissing(t, emulatorHost, bucketName)

	bucket, err := NewBucketServiceWithConfig(logger.Nop(), StorageConfig{
		Mode:          ObjectStorageModeGCSEmulator,
		EmulatorHost:  emulatorHost,
		Bucket:        bucketName,
		PublicBaseURL: emulatorHost,
		MakePublic:    true,
	})
	if err != nil {
		t.Fatalf("NewBucketServiceWithConfig: %v", err)
	}
	defer bucket.Close()

	ctx := context.Background()
	prefix := fmt.Sprintf("run/m-%d/f-%d", suffix, suffix)
	key := prefix + "/media.png"

	if err := bucket.UploadFile(dbctx.Context{Ctx: ctx}, key, "image/png", bytes.NewReader([]byte("png"))); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if err := bucket.MakePublic(ctx, key); err != nil {
		t.Fatalf("MakePublic: %v", err)
	}

	resp, err := http.Get(bucket.GetPublicURL(key))
	if err != nil {
		t.Fatalf("GET public url: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "png" {
		t.Fatalf("public body: want=%q got=%q", "png", string(body))
	}

	keys, err := bucket.ListKeys(ctx, prefix)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if !slices.Contains(keys, key) {
		t.Fatalf("ListKeys: missing %s in %v", key, keys)
	}

	if err := bucket.DeletePrefix(ctx, prefix); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	keys, err = bucket.ListKeys(ctx, prefix)
	if err != nil {
		t.Fatalf("ListKeys after delete: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty prefix; keys=%v", keys)
	}
}

func isEmulatorReachable(emulatorHost string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local-dev")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func createBucketIfMissing(t *testing.T, emulatorHost string, bucket string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"name": bucket})
	resp, err := http.Post(emulatorHost+"/storage/v1/b?project=local-dev", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("create bucket %q: %v", bucket, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
		return
	}
	b, _ := io.ReadAll(resp.Body)
	t.Fatalf("create bucket %q failed: status=%d body=%s", bucket, resp.StatusCode, strings.TrimSpace(string(b)))
}
