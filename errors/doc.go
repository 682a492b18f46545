// Package errors implements the error taxonomy of the edge client.
//
// # Classes
//
// Every error the client returns can be classified:
//
//   - Transient: broker connectivity, timeouts, cancelled contexts. The caller may retry.
//   - Invalid: identity violations (a data capture thread updated with a foreign id,
//     removal of an unknown pipeline), commands aimed at engines outside the fleet,
//     undecodable wire messages. Never retried.
//   - Fatal: configuration that cannot be used.
//
// The client itself never retries a command. Retry policy belongs to the caller.
//
// # Wrapping
//
// All wrapping follows "component.method: action failed: cause":
//
//	if err := dct.Update(next); err != nil {
//	    return errors.WrapInvalid(err, "Node", "ReconcileHeartbeat", "update dct")
//	}
//
// Classification survives wrapping, and the sentinels work with errors.Is:
//
//	if errors.Is(err, errors.ErrPipelineNotFound) {
//	    // pipeline was already removed
//	}
package errors
