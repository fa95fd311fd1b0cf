// Package postgres implements the repositories of internal/store on
// PostgreSQL through database/sql and the pgx driver.
//
// Most models are served by the generic Table, configured with a TableDef
// that maps columns to struct fields, declares computed columns, soft
// delete and many-to-many links, and exposes a listing.Schema for search,
// ordering, filtering and pagination. Stores with extra queries (tasks,
// sub-tasks, the catalogue, users, tokens, groups and jobs) embed a Table or
// use hand-written SQL. Errors are mapped to the sentinel errors of
// internal/store; unique violations become store.ErrDuplicate.
//
// The goose migrations under migrations/ are embedded in Migrations.
package postgres
