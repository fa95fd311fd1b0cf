// Package service contains the use cases of the API. It sits between the
// HTTP handlers and the repositories of internal/store.
//
// Resource implements create, read, update and delete for any model: it
// applies defaults, keeps read-only fields, enforces ownership and runs
// validation plus extra checks such as unique names. The task, sub-task and
// catalogue services extend it with their own queries. TaskService emits a
// status change event when a task moves to another status. AdminService
// runs bulk actions on behalf of staff users.
//
// Services return the errors of this package, of internal/store and of
// internal/domain; internal/api maps them to HTTP responses.
package service
