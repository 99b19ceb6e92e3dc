package pipeline

import (
	"context"
	"time"

	"product-scraper/utils"
)

// StageFunc is one step of a pipeline run.
type StageFunc func(ctx context.Context) error

// Middleware wraps a named stage with cross-cutting behaviour.
type Middleware func(name string, next StageFunc) StageFunc

// Logging logs the start and completion (or failure) of every stage.
func Logging(logger *utils.Logger) Middleware {
	return func(name string, next StageFunc) StageFunc {
		return func(ctx context.Context) error {
			logger.Info("[pipeline] Running %s", name)
			if err := next(ctx); err != nil {
				logger.Error("[pipeline] %s failed: %v", name, err)
				return err
			}
			logger.Info("[pipeline] Completed %s", name)
			return nil
		}
	}
}

// Timing logs how long every stage took.
func Timing(logger *utils.Logger) Middleware {
	return func(name string, next StageFunc) StageFunc {
		return func(ctx context.Context) error {
			start := time.Now()
			err := next(ctx)
			logger.Info("[pipeline] %s finished in %.4fs", name, time.Since(start).Seconds())
			return err
		}
	}
}

// chain applies middleware so that the first one is the outermost.
func chain(name string, fn StageFunc, mws []Middleware) StageFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](name, fn)
	}
	return fn
}
