package generators

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Device is the single GPU shared by every model. Only one model may hold it
// at a time; holders must call the returned release func when done.
type Device struct {
	sem    *semaphore.Weighted
	mu     sync.Mutex
	loaded string
	logger *slog.Logger
}

func NewDevice(logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{sem: semaphore.NewWeighted(1), logger: logger}
}

// Acquire blocks until the device is free or ctx is done.
func (d *Device) Acquire(ctx context.Context, model string) (func(), error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.loaded != model {
		if d.loaded != "" {
			d.logger.Debug("unloading model from device", "model", d.loaded)
		}
		d.logger.Info("loading model onto device", "model", model)
		d.loaded = model
	}
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.logger.Debug("releasing device", "model", model)
			d.sem.Release(1)
		})
	}, nil
}

// Loaded returns the model that last held the device.
func (d *Device) Loaded() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}
