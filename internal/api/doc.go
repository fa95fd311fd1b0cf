// Package api exposes the task, catalog and admin use cases over HTTP.
//
// Handlers decode and validate requests, call the services and map their
// errors onto status codes with HandleAPIError. Generic CRUD endpoints are
// served by ResourceHandler; the handlers of individual models embed it and
// add their extra routes. Authentication, tracing, metrics and rate limiting
// live in the middleware sub-package.
package api
