// Package log provides the redacting slog handler used by every hathi
// component.
//
// A credential scanner handles secrets by definition, so nothing it logs may
// carry one. SecureHandler masks:
//   - attributes whose key names a secret (password, pwd, dsn, secret, ...)
//   - values that look like a whole secret (tokens, private key markers)
//   - the password part of connection strings embedded in any value, for
//     URL style DSNs (postgres://user:pw@host), MySQL DSNs
//     (user:pw@tcp(host)/db) and key/value strings (password=pw)
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("connect failed", "dsn", dsn) // dsn=***REDACTED***
//	slog.SetDefault(logger)
package log
