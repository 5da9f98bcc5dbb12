package activitymap

import (
	"context"

	remito "github.com/goliatone/go-remito"
)

// LogSink writes normalized events to logger at info level. It never fails.
func LogSink(logger remito.Logger, opts ...Option) remito.ActivitySink {
	return remito.ActivitySinkFunc(func(_ context.Context, event remito.ActivityEvent) error {
		if logger == nil {
			return nil
		}
		out := Normalize(event, opts...)
		args := []any{
			"verb", out.Verb,
			"actor_id", out.ActorID,
			"object_type", out.ObjectType,
			"object_id", out.ObjectID,
			"tenant_id", out.TenantID,
		}
		if impersonator, ok := out.Metadata[MetadataKeyImpersonatorID]; ok {
			args = append(args, MetadataKeyImpersonatorID, impersonator)
		}
		logger.Info("activity", args...)
		return nil
	})
}
