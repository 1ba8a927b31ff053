package domain

// Environment tags where a driver is able to run.
type Environment string

const (
	// EnvironmentServer marks a driver that needs server-side facilities
	// (filesystem, database handles).
	EnvironmentServer Environment = "server"
	// EnvironmentClient marks a driver designed for client-side processes
	// (embedded, in-process storage only).
	EnvironmentClient Environment = "client"
)

// Valid reports whether e is one of the declared environments.
func (e Environment) Valid() bool {
	return e == EnvironmentServer || e == EnvironmentClient
}
