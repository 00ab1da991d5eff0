package store

import (
	"time"

	"github.com/klpod221/kerminal-sub001/internal/logger"
)

// Option configures a file store.
type Option func(*fileStore)

// WithClock replaces time.Now. Stamps are always stored in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *fileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeviceID sets the device id written into every version stamp.
func WithDeviceID(deviceID string) Option {
	return func(s *fileStore) {
		s.deviceID = deviceID
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *fileStore) {
		if l != nil {
			s.logger = l
		}
	}
}
