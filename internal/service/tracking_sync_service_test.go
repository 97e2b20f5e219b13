package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spst-logistics/spst-api/internal/domain"
)

func TestMapFeedStatus(t *testing.T) {
	tests := []struct {
		code   string
		status domain.ShipmentStatus
		known  bool
	}{
		{"PU", domain.ShipmentStatusInRitiro, true},
		{"PICKUP", domain.ShipmentStatusInRitiro, true},
		{"IT", domain.ShipmentStatusInTransito, true},
		{"HUB", domain.ShipmentStatusInTransito, true},
		{"DL", domain.ShipmentStatusConsegnata, true},
		{"EX", domain.ShipmentStatusEccezione, true},
		{"XX", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		status, ok := mapFeedStatus(tc.code)
		assert.Equal(t, tc.known, ok, "code %q", tc.code)
		assert.Equal(t, tc.status, status, "code %q", tc.code)
	}
}

func TestStatusRankNeverMovesBackwards(t *testing.T) {
	// A delivery scan followed by a stale transit scan must not demote
	// the shipment.
	assert.Less(t, statusRank[domain.ShipmentStatusInTransito], statusRank[domain.ShipmentStatusConsegnata])
	assert.Less(t, statusRank[domain.ShipmentStatusCreata], statusRank[domain.ShipmentStatusInRitiro])
	assert.Less(t, statusRank[domain.ShipmentStatusInRitiro], statusRank[domain.ShipmentStatusInTransito])

	// ANNULLATA and ECCEZIONE sit outside the happy path ordering.
	_, ranked := statusRank[domain.ShipmentStatusAnnullata]
	assert.False(t, ranked)
	_, ranked = statusRank[domain.ShipmentStatusEccezione]
	assert.False(t, ranked)
}
