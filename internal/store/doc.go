// Package store declares the repositories used by the services: a generic
// Repository for every model plus the task, catalogue, user, token, group
// and bulk stores. Implementations live in internal/platform/postgres and
// report failures with the sentinel errors defined here.
package store
