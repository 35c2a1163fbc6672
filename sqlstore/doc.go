// Package sqlstore implements the session store on relational
// backends: SQLite, PostgreSQL and MySQL behind one code path.
//
// A Store is created with [Open] from a connection URL parsed by the
// config package. Open pings the backend, then fixes the schema
// version for the store's lifetime: an empty database is bootstrapped
// with the modern single-payload layout via embedded migrations, while
// a populated database is detected as modern or legacy from its
// schema_metadata marker or the shape of its events table. Both
// layouts serve the same API; the legacy wide-column layout exists so
// the store can run against databases written by earlier deployments
// without converting them.
//
// All failures map onto the sentinel errors of the session package, so
// callers branch with errors.Is and never see driver error types.
package sqlstore
