// Package job runs persisted background jobs on a pool of workers.
//
// Jobs are saved before they are queued so that a restart can pick up
// whatever was pending or interrupted. Recovered records are turned back
// into runnable jobs through factories registered per job type.
package job
