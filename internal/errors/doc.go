// Package errors provides a comprehensive error handling solution for the tactics-api project.
//
// This package is inspired by the goaterr pattern and provides:
//   - Structured errors with codes, messages, and metadata
//   - WebSocket close-code and HTTP status mapping
//   - User-friendly error messages
//   - Error context preservation through wrapping
//   - Validation error helpers
//   - Type-safe error checking
//
// # Basic Usage
//
// Creating errors:
//
//	err := errors.NotFound("encounter not found")
//	err := errors.InvalidArgumentf("unknown action %q", name)
//
// Adding metadata:
//
//	err := errors.NotFound("encounter not found").
//	    WithMeta("encounter_id", encounterID).
//	    WithMeta("session_id", sessionID)
//
// Wrapping errors:
//
//	if err := repo.Get(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to get encounter")
//	}
//
// Changing error semantics:
//
//	if err := client.Get(ctx, key).Err(); err != nil {
//	    if err == redis.Nil {
//	        return errors.WrapWithCode(err, errors.CodeNotFound, "encounter not found")
//	    }
//	    return errors.Wrap(err, "redis error")
//	}
//
// # Error Checking
//
// Type checking:
//
//	if errors.IsNotFound(err) {
//	    // Handle not found case
//	}
//
// Extracting information:
//
//	code := errors.GetCode(err)
//	message := errors.GetMessage(err)
//	meta := errors.GetMeta(err)
//
// # Validation Errors
//
// Using the validation builder:
//
//	vb := errors.NewValidationBuilder()
//	errors.ValidateRequired("name", input.Name, vb)
//	errors.ValidateRange("max_hp", input.MaxHP, 1, 999, vb)
//	if err := vb.Build(); err != nil {
//	    return err
//	}
//
// # Transport Integration
//
// Closing a WebSocket on a fatal error:
//
//	if err := session.Run(ctx); err != nil {
//	    code := errors.WSCloseCode(err)
//	    message := websocket.FormatCloseMessage(code, errors.GetMessage(err))
//	    _ = conn.WriteMessage(websocket.CloseMessage, message)
//	}
//
// Answering an HTTP request:
//
//	if err != nil {
//	    http.Error(w, errors.GetMessage(err), errors.GetCode(err).HTTPStatus())
//	    return
//	}
//
// # Layer-Specific Guidelines
//
// Repository layer:
//   - Return domain-specific errors (NotFound, AlreadyExists)
//   - Include relevant IDs in metadata
//   - Wrap storage errors with context
//
// Service/Orchestrator layer:
//   - Validate inputs and return InvalidArgument errors
//   - Check preconditions and return FailedPrecondition errors
//   - Wrap repository errors with business context
//
// Handler layer:
//   - Convert errors to error envelopes or close codes
//   - Extract user-friendly messages
//   - Log internal errors for debugging
//
// # Error Codes
//
// The following error codes are available:
//   - NotFound: Resource not found
//   - InvalidArgument: Invalid input provided
//   - AlreadyExists: Resource already exists
//   - PermissionDenied: Insufficient permissions
//   - Internal: Internal server error
//   - Unavailable: Service temporarily unavailable
//   - Unauthenticated: Authentication required
//   - ResourceExhausted: Rate limit or quota exceeded
//   - FailedPrecondition: Operation requirements not met
//   - Aborted: Operation aborted
//   - OutOfRange: Value out of valid range
//   - Unimplemented: Feature not implemented
//   - DataLoss: Unrecoverable data loss
//   - Canceled: Operation canceled
//   - DeadlineExceeded: Operation timeout
package errors
