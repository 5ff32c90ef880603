// Package protocol provides the per-service login adapters used by the scan
// orchestrator.
//
// # Architecture
//
// Each supported database protocol implements the Adapter interface. An
// adapter makes exactly one authentication attempt per call, closes the
// connection immediately and classifies the result into the closed
// model.Outcome set. The orchestrator depends only on Adapter and never on a
// concrete service type.
//
// Classification is fail-closed: a native error is reported as
// OutcomeBadPassword or OutcomeBadUsername only when the driver's typed error
// proves it. Everything else is OutcomeError, which stops the session.
//
// # Supported Protocols
//
//   - PostgreSQL (port 5432) via github.com/lib/pq
//   - Microsoft SQL Server (port 1433) via github.com/microsoft/go-mssqldb
//   - MySQL / MariaDB (port 3306) via github.com/go-sql-driver/mysql
//
// # Usage
//
//	registry := protocol.NewRegistry(protocol.WithNoSSL(true))
//	adapter, _ := registry.Lookup(model.ServiceTypePostgres)
//	attempt := adapter.Attempt(ctx, "10.0.0.5", "admin", "secret", "postgres")
//	if attempt.Outcome == model.OutcomeSuccess {
//	    // credential accepted
//	}
package protocol
