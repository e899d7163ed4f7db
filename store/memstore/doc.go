// Package memstore implements goCatalog.CatalogStore and
// goCatalog.CredentialStore in process memory.
//
// It backs the development server mode, the load generator, and HTTP-level
// tests. Data does not survive a restart.
package memstore
