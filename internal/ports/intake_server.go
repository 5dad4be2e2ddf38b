package ports

// IntakeServer is a long-running front end of the gateway
type IntakeServer interface {
	// Start starts serving in the background
	Start() error

	// Stop stops the server, draining in-flight requests
	Stop() error
}
