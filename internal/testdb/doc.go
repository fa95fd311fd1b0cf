// Package testdb opens the PostgreSQL database used by integration tests.
//
// Tests call Open, which skips the test when DATABASE_URL is unset, applies
// the embedded migrations once per process and returns the connection. Each
// test then runs inside WithTx so its writes are rolled back:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		tags := postgres.NewTable[domain.Tag](tx, postgres.TagTable(), nil)
//		...
//	})
package testdb
