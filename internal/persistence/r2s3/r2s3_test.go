package r2s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPutFileSignsPathStyleRequest(t *testing.T) {
	var (
		gotPath, gotAuth, gotType, gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotPath, gotAuth, gotType, gotBody = r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("Content-Type"), string(b)
		if r.Header.Get("x-amz-content-sha256") != sha256Hex(b) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "runs", "AKID", "secret", WithRegion("eu-west-1"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	local := filepath.Join(t.TempDir(), "a.jsonl.zst")
	if err := os.WriteFile(local, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.PutFile(context.Background(), "/p/run 1/a.jsonl.zst", local); err != nil {
		t.Fatalf("put: %v", err)
	}
	if gotPath != "/runs/p/run 1/a.jsonl.zst" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotBody != "payload" || gotType != "application/zstd" {
		t.Fatalf("body=%q type=%q", gotBody, gotType)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKID/20260304/eu-west-1/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("auth=%q", gotAuth)
	}
}

func TestPutFileReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()
	c, _ := New(srv.URL, "b", "k", "s")
	local := filepath.Join(t.TempDir(), "x")
	_ = os.WriteFile(local, []byte("x"), 0o644)
	err := c.PutFile(context.Background(), "x", local)
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err=%v", err)
	}
}

type fakeUploader struct {
	mu    sync.Mutex
	keys  []string
	fails int
}

func (f *fakeUploader) PutFile(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("transient")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestMirrorUploadsOnceUntilFileChanges(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "runs", "r1", "snapshots", "5.snap.zst")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	up := &fakeUploader{fails: 1}
	m := NewMirror(up, dir, "/motion/", MirrorConfig{Backoff: time.Millisecond}, nil)
	m.Enqueue(p)
	m.Enqueue(p)
	m.Enqueue(filepath.Join(t.TempDir(), "outside"))
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	st := m.Stats()
	if len(up.keys) != 1 || up.keys[0] != "motion/runs/r1/snapshots/5.snap.zst" {
		t.Fatalf("keys=%v", up.keys)
	}
	if st.UploadSuccessTotal != 1 || st.SkippedTotal != 1 || st.EnqueuedTotal != 3 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestNilMirrorIsInert(t *testing.T) {
	var m *Mirror
	m.Enqueue("x")
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if m.Stats() != (Stats{}) {
		t.Fatalf("stats should be zero")
	}
}
