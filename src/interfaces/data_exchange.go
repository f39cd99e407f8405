package interfaces

import "volume-dashboard/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for sharing snapshots with browsers.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a snapshot to all connected clients.
	Broadcast(snapshot *models.MSnapshot)

	// -----------------------------------------------------------------------------
	// UpdateSnapshot replaces the internal state without broadcasting.
	UpdateSnapshot(snapshot *models.MSnapshot)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
