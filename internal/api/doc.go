// Package api defines the request and response values exchanged with callers of
// the test tools.
//
// Everything here is a request-scoped value: parameter objects produced by the
// adapter, and response records assembled by the discovery and execution
// workflows. None of these types hold references to engine resources.
//
// Parameter parsing is explicit. Each accepted key is handled by a switch and
// every other key is rejected, so a misspelled option can never be mistaken for
// an absent one:
//
//	params, err := api.Parse(api.KindExecuteTests, request.GetArguments())
//	if err != nil {
//	    var verr *api.ValidationError
//	    if errors.As(err, &verr) {
//	        // caller error, verr.Errors lists each offending field
//	    }
//	}
package api
