package proposals

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore remembers which sources already produced proposals.
type SeenStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// SourceKey hashes the normalized URL and title of a source.
func SourceKey(src *Source) string {
	combined := normalizeURL(src.URL) + "|" + normalizeTitle(src.Title)
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}

// normalizeURL drops fragments, tracking parameters and trailing slashes so
// that the same article shared through different links maps to one key.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return strings.TrimRight(u.String(), "/")
}

// RedisSeen keeps source keys in a Redis set whose TTL slides forward on
// every insert.
type RedisSeen struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisSeen(addr, password, key string, ttl time.Duration) *RedisSeen {
	return &RedisSeen{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		key:    key,
		ttl:    ttl,
	}
}

func (r *RedisSeen) Seen(ctx context.Context, key string) (bool, error) {
	return r.client.SIsMember(ctx, r.key, key).Result()
}

func (r *RedisSeen) Mark(ctx context.Context, key string) error {
	if err := r.client.SAdd(ctx, r.key, key).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		return r.client.Expire(ctx, r.key, r.ttl).Err()
	}
	return nil
}

func (r *RedisSeen) Close() error {
	return r.client.Close()
}

// FileSeen keeps source keys one per line in a local file.
type FileSeen struct {
	path string

	mu   sync.Mutex
	keys map[string]bool
}

func NewFileSeen(path string) *FileSeen {
	return &FileSeen{path: path}
}

func (f *FileSeen) load() error {
	if f.keys != nil {
		return nil
	}
	f.keys = make(map[string]bool)
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			f.keys[line] = true
		}
	}
	return scanner.Err()
}

func (f *FileSeen) Seen(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return false, err
	}
	return f.keys[key], nil
}

func (f *FileSeen) Mark(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return err
	}
	if f.keys[key] {
		return nil
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(key + "\n"); err != nil {
		return err
	}
	f.keys[key] = true
	return nil
}
