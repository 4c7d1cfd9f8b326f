// Package environment propagates the deployment stage (development, staging,
// production) through context.Context, HTTP middleware and structured logs.
//
// The typed string Environment with its three canonical constants is attached
// to a context via WithContext and read back with FromContext or the
// IsDevelopment/IsStaging/IsProduction predicates. Parse normalizes the short
// spellings used in env vars ("dev", "stage", "prod").
//
// Subsystems use the predicates to gate stage-dependent behavior, most
// notably whether error responses include stack traces.
package environment
