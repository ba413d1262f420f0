// Package sqlstore maps entities onto SQL tables through database/sql.
//
// Table implements ports.Model plus the soft-delete, undelete and
// transactional delete capabilities for any entity embedding domain.Record.
// Query is the immutable builder returned by Table.Query. Both work with
// SQLite and Postgres; placeholders are rebound per Dialect.
//
// Timestamps are stored as RFC 3339 text in UTC so that one schema serves
// both databases.
package sqlstore
