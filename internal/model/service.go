package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceType identifies a database protocol that hathi can discover and
// audit. Each type carries a fixed default port and a fixed default database
// name, both looked up from an immutable table.
type ServiceType int

const (
	// ServiceTypePostgres is PostgreSQL and wire-compatible servers
	// (CockroachDB, Amazon Aurora PostgreSQL, etc.).
	ServiceTypePostgres ServiceType = iota + 1

	// ServiceTypeMSSQL is Microsoft SQL Server (TDS protocol).
	ServiceTypeMSSQL

	// ServiceTypeMySQL is MySQL and MariaDB.
	ServiceTypeMySQL
)

// serviceInfo holds the constant associations of a ServiceType.
type serviceInfo struct {
	name        string
	displayName string
	port        int
	database    string
}

// serviceTable is initialized once and never mutated.
var serviceTable = map[ServiceType]serviceInfo{
	ServiceTypePostgres: {name: "postgres", displayName: "PostgreSQL", port: 5432, database: "postgres"},
	ServiceTypeMSSQL:    {name: "mssql", displayName: "Microsoft SQL Server", port: 1433, database: "master"},
	ServiceTypeMySQL:    {name: "mysql", displayName: "MySQL", port: 3306, database: "mysql"},
}

// serviceOrder fixes the iteration order of AllServiceTypes.
var serviceOrder = []ServiceType{ServiceTypePostgres, ServiceTypeMSSQL, ServiceTypeMySQL}

// AllServiceTypes returns every known service type in a stable order.
// The returned slice is a copy and may be modified by the caller.
func AllServiceTypes() []ServiceType {
	types := make([]ServiceType, len(serviceOrder))
	copy(types, serviceOrder)
	return types
}

// ParseServiceType converts a name such as "postgres" or "mssql" into a
// ServiceType. A few common aliases are accepted.
func ParseServiceType(name string) (ServiceType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return ServiceTypePostgres, nil
	case "mssql", "sqlserver", "tds":
		return ServiceTypeMSSQL, nil
	case "mysql", "mariadb":
		return ServiceTypeMySQL, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownServiceType, name)
	}
}

// Valid reports whether s is one of the known service types.
func (s ServiceType) Valid() bool {
	_, ok := serviceTable[s]
	return ok
}

// String returns the short name of the service type (e.g. "postgres").
func (s ServiceType) String() string {
	if info, ok := serviceTable[s]; ok {
		return info.name
	}
	return "unknown"
}

// DisplayName returns the product name used in human-readable reports.
func (s ServiceType) DisplayName() string {
	if info, ok := serviceTable[s]; ok {
		return info.displayName
	}
	return "Unknown"
}

// DefaultPort returns the well-known TCP port of the service type.
// It returns 0 for an unknown type.
func (s ServiceType) DefaultPort() int {
	return serviceTable[s].port
}

// DefaultDatabase returns the database name targeted when authenticating.
func (s ServiceType) DefaultDatabase() string {
	return serviceTable[s].database
}

// MarshalJSON encodes the service type as its short name.
func (s ServiceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a service type from its short name or an alias.
func (s *ServiceType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseServiceType(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
