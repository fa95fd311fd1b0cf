// Package domain holds the task tracker and library catalogue entities,
// their validation rules and the model registry describing tables, fields
// and relations.
package domain
