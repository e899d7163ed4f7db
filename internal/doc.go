// Package internal holds helpers private to goCatalog.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: catalogd configuration loading (viper)
//   - flows: pure-function flow orchestrators for Engine operations
//   - httpapi: chi router and JSON handlers served by catalogd
//   - logging: zap logger construction
//   - rate: Redis-backed login and refresh throttles
package internal
