// Package postgres provides PostgreSQL implementations of the store
// interfaces. Each store accepts a DBTX so it can run against either the
// connection pool or a transaction; WithTx* rebinds a store to an open
// transaction.
package postgres
