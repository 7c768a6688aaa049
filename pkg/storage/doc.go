// Package storage provides the SQL persistence layer for users and tasks.
//
// It builds dialect-specific DSNs (sqlite, postgresql, mysql, mssql), opens
// and pools database connections, initializes the schema, and implements the
// store interfaces declared in pkg/api on database/sql. SQLite and PostgreSQL
// drivers are linked in; MySQL and SQL Server DSNs are produced for
// deployments that link their own drivers.
package storage
