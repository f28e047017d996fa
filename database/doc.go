// Package database provides the persistence registrar: database settings and
// provider selection, the Bun database context, migrations, seeders, query
// logging hooks, SQL error classification and the database health check.
package database
