package userstream

import (
	"context"
	"iter"

	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"
)

// Bootstrap prepares the store for streaming.
// It creates the schema when it is missing, and seeds the table from source
// only when the table is still empty. Calling it again on a prepared store changes nothing.
//
// A nil source skips seeding.
func Bootstrap(ctx context.Context, schema Schema, source iter.Seq2[User, error]) error {
	if err := schema.EnsureSchema(ctx); err != nil {
		return ErrSchema.Wrap(err)
	}
	if source == nil {
		return nil
	}
	count, err := schema.Count(ctx)
	if err != nil {
		return err
	}
	if 0 < count {
		logger.Debug(ctx, "userstream table is already seeded", logging.Field("count", count))
		return nil
	}
	inserted, err := schema.Insert(ctx, source)
	if err != nil {
		return err
	}
	logger.Info(ctx, "userstream table seeded", logging.Field("inserted", inserted))
	return nil
}
