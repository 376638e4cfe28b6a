package crane

import (
	"context"
	"fmt"
)

// WithService manages service lifecycle with automatic cleanup.
//
// This helper creates a service, starts the worker, executes the callback
// and stops the worker when done. If Stop fails, a warning is logged but
// does not override the callback's error.
//
// Example usage:
//
//	err := crane.WithService(ctx, func(svc crane.Service) error {
//	    if err := svc.Initialize(ctx, modelPath); err != nil {
//	        return err
//	    }
//	    names, err := svc.ListModels(ctx)
//	    // ...
//	    return err
//	},
//	    crane.WithLogger(log),
//	)
func WithService(ctx context.Context, fn func(Service) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	svc := NewService(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	defer func() {
		// The callback's ctx may already be done; Stop still needs to run.
		if stopErr := svc.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			log.Warn("failed to stop service", "error", stopErr)
		}
	}()

	return fn(svc)
}
