package common

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	puts    int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.puts++
	m.objects[bucket+"/"+key] = data
	m.types[bucket+"/"+key] = contentType
	return nil
}

func (m *memStore) Size(ctx context.Context, bucket, key string) (int64, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return -1, nil
	}
	return int64(len(data)), nil
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "final.mp4")
	thumb := filepath.Join(dir, "-1_captioned.png")
	if err := os.WriteFile(final, []byte("video"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(thumb, []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := newMemStore()
	archive := &Archive{Store: store, Bucket: "shorts", Prefix: "text2shorts"}
	ctx := context.Background()

	if err := archive.Archive(ctx, "Space_3", final, thumb); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if got := string(store.objects["shorts/text2shorts/Space_3/final.mp4"]); got != "video" {
		t.Fatalf("unexpected archived video %q", got)
	}
	if ct := store.types["shorts/text2shorts/Space_3/-1_captioned.png"]; ct != "image/png" {
		t.Fatalf("expected image/png content type, got %q", ct)
	}

	// Same sizes are not uploaded again.
	if err := archive.Archive(ctx, "Space_3", final, thumb); err != nil {
		t.Fatalf("Archive again: %v", err)
	}
	if store.puts != 2 {
		t.Fatalf("expected 2 puts in total, got %d", store.puts)
	}

	err := archive.Archive(ctx, "Space_3", filepath.Join(dir, "missing.wav"))
	if err == nil || !strings.Contains(err.Error(), "missing.wav") {
		t.Fatalf("expected error naming the missing file, got %v", err)
	}
}

func TestExecRunner(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo oops >&2; exit 3")
	if err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if res.ExitCode != 3 || strings.TrimSpace(res.Stdout) != "out" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
