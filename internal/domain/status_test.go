package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spst-logistics/spst-api/internal/domain"
)

func TestShipmentStatusIsValid(t *testing.T) {
	valid := []domain.ShipmentStatus{
		domain.ShipmentStatusCreata,
		domain.ShipmentStatusInRitiro,
		domain.ShipmentStatusInTransito,
		domain.ShipmentStatusConsegnata,
		domain.ShipmentStatusEccezione,
		domain.ShipmentStatusAnnullata,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "expected %q to be valid", s)
	}

	invalid := []domain.ShipmentStatus{"", "creata", "SPEDITA", "IN  TRANSITO"}
	for _, s := range invalid {
		assert.False(t, s.IsValid(), "expected %q to be invalid", s)
	}
}

func TestParseWaveStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  domain.WaveStatus
		ok    bool
	}{
		{name: "lowercase", input: "inviata", want: domain.WaveStatusInviata, ok: true},
		{name: "uppercase", input: "IN_CORSO", want: domain.WaveStatusInCorso, ok: true},
		{name: "mixed case", input: "Completata", want: domain.WaveStatusCompletata, ok: true},
		{name: "surrounding whitespace", input: "  bozza ", want: domain.WaveStatusBozza, ok: true},
		{name: "annullata", input: "annullata", want: domain.WaveStatusAnnullata, ok: true},
		{name: "unknown value", input: "spedita", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := domain.ParseWaveStatus(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestCanTransitionWave(t *testing.T) {
	all := []domain.WaveStatus{
		domain.WaveStatusBozza,
		domain.WaveStatusInviata,
		domain.WaveStatusInCorso,
		domain.WaveStatusCompletata,
		domain.WaveStatusAnnullata,
	}

	// Staff may perform any transition, including backwards moves.
	for _, from := range all {
		for _, to := range all {
			assert.True(t, domain.CanTransitionWave(from, domain.WaveActorStaff, to),
				"staff %s -> %s", from, to)
		}
	}

	// A carrier may only take inviata to in_corso.
	for _, from := range all {
		for _, to := range all {
			want := from == domain.WaveStatusInviata && to == domain.WaveStatusInCorso
			assert.Equal(t, want, domain.CanTransitionWave(from, domain.WaveActorCarrier, to),
				"carrier %s -> %s", from, to)
		}
	}

	// Unknown actors never transition anything.
	assert.False(t, domain.CanTransitionWave(domain.WaveStatusInviata, domain.WaveActor("customer"), domain.WaveStatusInCorso))
}
