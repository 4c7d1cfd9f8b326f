// Package logger is a thin factory around log/slog adding functional options,
// consistent attribute constructors, and transparent injection of
// context-scoped values into every record.
//
// New builds a *slog.Logger whose handler is wrapped in a decorator running
// registered ContextExtractor callbacks on each log call. That is how request
// identifiers, tenant identifiers and the deployment environment end up on
// log lines without being passed to every call site.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(env, "api"),
//	    logger.WithContextExtractors(
//	        requestctx.LoggerExtractor(),
//	        environment.LoggerExtractor(),
//	    ),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "entity created",
//	    logger.Resource("projects"),
//	    logger.Duration(time.Since(start)),
//	)
//
// Attribute constructors in attr.go keep key naming uniform across packages:
// Error, RequestID, TenantID, UserID, Component, Duration and friends. Nil
// and empty values yield an empty Attr, so callers never need guards.
package logger
