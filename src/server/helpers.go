package server

import (
	"encoding/json"
	"fmt"

	"volume-dashboard/src/helpers"
	"volume-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// parseSubscribe decodes a client command. Returns (nil, nil) for commands
// other than "subscribe", which are ignored.
func parseSubscribe(message []byte) (*models.MSubscribeCommand, error) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		return nil, fmt.Errorf("parse client command: %w", err)
	}

	if cmd.Command != "subscribe" {
		return nil, nil
	}

	switch cmd.View {
	case "", "top_volume", "movers":
		// ok
	default:
		return nil, helpers.NewValidationError(fmt.Sprintf("unknown view %q", cmd.View))
	}

	switch cmd.Period {
	case "", "24h", "7d":
		// ok
	default:
		return nil, helpers.NewValidationError(fmt.Sprintf("unknown period %q", cmd.Period))
	}

	return &cmd, nil
}
