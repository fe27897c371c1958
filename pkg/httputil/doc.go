// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteNotFoundError(w, "extension point not found")
//	httputil.WriteError(w, http.StatusBadRequest, err)
//
// # Request Parsing
//
//	id, err := httputil.ParsePathString(r, "id")
//	load, err := httputil.ParseQueryBool(r, "load", false)
//
// # Middleware
//
//	router.Use(httputil.RecoveryMiddleware(logger), httputil.LoggingMiddleware(logger))
package httputil
