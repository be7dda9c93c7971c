package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// queryTracer logs statements that fail or exceed the slow threshold.
// Arguments are never logged.
type queryTracer struct {
	logger logrus.FieldLogger
	slow   time.Duration
	now    func() time.Time
}

func newQueryTracer(logger logrus.FieldLogger, slow time.Duration) *queryTracer {
	return &queryTracer{
		logger: logger.WithField("component", "postgres"),
		slow:   slow,
		now:    time.Now,
	}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.now().Sub(start.at)

	entry := t.logger.WithFields(logrus.Fields{
		"sql":     compactSQL(start.sql),
		"elapsed": elapsed.String(),
	})
	switch {
	case data.Err != nil && ErrorCode(data.Err) != "":
		entry.WithField("sqlstate", ErrorCode(data.Err)).Debug("statement rejected")
	case data.Err != nil:
		entry.WithError(data.Err).Warn("statement failed")
	case t.slow > 0 && elapsed >= t.slow:
		entry.WithField("rows", data.CommandTag.RowsAffected()).Warn("slow statement")
	}
}

// compactSQL folds whitespace so multi-line statements log on one line.
func compactSQL(sql string) string {
	const limit = 200
	s := strings.Join(strings.Fields(sql), " ")
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
