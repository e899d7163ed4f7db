// Package bunstore implements goCatalog.CatalogStore and
// goCatalog.CredentialStore on a SQL database through Bun.
//
// PostgreSQL and SQLite are supported; [NewDB] picks the dialect from the
// DSN. [Migrate] creates the products, users and user_roles tables.
//
// Absent rows surface as goCatalog.ErrNotFound and unique violations as
// goCatalog.ErrDuplicateKey.
package bunstore
