package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPageSize     = 500
	// maxPageSize matches the repository cap on a single listing.
	maxPageSize = 1000
)

// Options are shared by every usecase constructor. Zero values are replaced
// with defaults.
type Options struct {
	Now          func() time.Time
	WriteTimeout time.Duration
	Logger       logrus.FieldLogger
	// PageSize is the number of rows read per query when a use case walks a
	// whole listing.
	PageSize int
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	o.PageSize = min(o.PageSize, maxPageSize)
	return o
}

// writeCtx detaches a write from client cancellation so a disconnect cannot
// leave it between lock and commit. The timeout still bounds it.
func (o Options) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.WriteTimeout)
}

func (o Options) now() time.Time {
	return o.Now().UTC()
}
