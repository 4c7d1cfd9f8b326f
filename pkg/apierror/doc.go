// Package apierror defines the error taxonomy shared by all tenantkit
// subsystems and maps it onto stable, client-facing error responses.
//
// Every error that crosses a subsystem boundary is one of a small set of
// kinds, each with a stable string code and an HTTP status:
//
//   - validation_error       (422) - request payload failed validation
//   - authentication_required (401) - no resolvable caller identity
//   - forbidden              (403) - caller identity lacks permission
//   - not_found              (404) - resource absent within the caller's scope
//   - conflict               (409) - state conflict (duplicate, stale write)
//   - rate_limited           (429) - admission control denied, carries RetryAfter
//   - database_error         (500) - storage-engine failure, wraps the cause
//   - internal_error         (500) - anything else
//
// Domain errors (not found, forbidden) propagate unchanged through the call
// chain. Storage-engine errors never leave the repository layer raw: they are
// wrapped with Database so callers only ever see the taxonomy, not driver
// types.
//
// # Usage
//
//	if err := repo.Update(ctx, id, patch); err != nil {
//		if apierror.IsNotFound(err) {
//			// 404 path
//		}
//	}
//
// Responses are rendered with a Renderer:
//
//	renderer := apierror.NewRenderer(apierror.WithDebug(cfg.IsDevelopment))
//	renderer.Render(w, err)
//
// Stack traces appear in the response only when the renderer runs in debug
// mode, so production responses stay free of internals.
package apierror
