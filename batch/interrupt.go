package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"text2shorts/config"

	"github.com/redis/go-redis/v9"
)

// InterruptFlag is a cooperative stop signal shared with other processes.
// Its value is "stop" or "running".
type InterruptFlag interface {
	Set(ctx context.Context, value string) error
	Get(ctx context.Context) (string, error)
}

// FileFlag keeps the flag in a small text file.
type FileFlag struct {
	Path string
}

func NewFileFlag(path string) *FileFlag {
	if path == "" {
		path = config.InterruptFlagFile
	}
	return &FileFlag{Path: path}
}

func (f *FileFlag) Set(ctx context.Context, value string) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(f.Path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to write interrupt flag: %w", err)
	}
	return nil
}

// Get returns the first line of the flag file, or "" when it does not exist.
func (f *FileFlag) Get(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read interrupt flag: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// RedisFlag keeps the flag under a Redis key so several hosts can share it.
type RedisFlag struct {
	client *redis.Client
	key    string
}

func NewRedisFlag(addr, password, key string) *RedisFlag {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RedisFlag{client: client, key: key}
}

func (r *RedisFlag) Set(ctx context.Context, value string) error {
	if err := r.client.Set(ctx, r.key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisFlag) Get(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return val, nil
}

func (r *RedisFlag) Close() error {
	return r.client.Close()
}

// NewInterruptFlag uses Redis when an address is configured and the file flag otherwise.
func NewInterruptFlag(s config.Settings) InterruptFlag {
	if s.RedisAddr != "" {
		return NewRedisFlag(s.RedisAddr, s.RedisPass, s.InterruptKey)
	}
	return NewFileFlag(config.InterruptFlagFile)
}
