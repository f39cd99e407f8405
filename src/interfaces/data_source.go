package interfaces

import (
	"context"
	"sync"

	"volume-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for fetching market data from an exchange.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchSnapshot performs one full fetch cycle and returns a complete
	// snapshot (all views).
	FetchSnapshot(ctx context.Context) (*models.MSnapshot, error)

	// -----------------------------------------------------------------------------

	// TriggerRefresh asks the running poll loop for an immediate cycle.
	// Safe to call from any goroutine; coalesced when a cycle is already due.
	TriggerRefresh()

	// -----------------------------------------------------------------------------

	// Start begins the polling loop
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push snapshots to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- *models.MSnapshot, wg *sync.WaitGroup) error
}
