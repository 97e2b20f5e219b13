package domain

import "strings"

// ShipmentStatus is the lifecycle status of a shipment.
// Values are validated at the API boundary; anything outside the set is rejected.
type ShipmentStatus string

const (
	ShipmentStatusCreata     ShipmentStatus = "CREATA"
	ShipmentStatusInRitiro   ShipmentStatus = "IN RITIRO"
	ShipmentStatusInTransito ShipmentStatus = "IN TRANSITO"
	ShipmentStatusConsegnata ShipmentStatus = "CONSEGNATA"
	ShipmentStatusEccezione  ShipmentStatus = "ECCEZIONE"
	ShipmentStatusAnnullata  ShipmentStatus = "ANNULLATA"
)

// IsValid checks if the ShipmentStatus is a known enum value
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusCreata, ShipmentStatusInRitiro, ShipmentStatusInTransito,
		ShipmentStatusConsegnata, ShipmentStatusEccezione, ShipmentStatusAnnullata:
		return true
	}
	return false
}

// QuoteStatus is the lifecycle status of a quote
type QuoteStatus string

const (
	QuoteStatusInLavorazione QuoteStatus = "IN LAVORAZIONE"
	QuoteStatusInviata       QuoteStatus = "INVIATA"
	QuoteStatusAccettata     QuoteStatus = "ACCETTATA"
)

// IsValid checks if the QuoteStatus is a known enum value
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusInLavorazione, QuoteStatusInviata, QuoteStatusAccettata:
		return true
	}
	return false
}

// QuoteOptionStatus is the status of a single carrier/price proposal
type QuoteOptionStatus string

const (
	QuoteOptionStatusBozza     QuoteOptionStatus = "bozza"
	QuoteOptionStatusAccettata QuoteOptionStatus = "accettata"
	QuoteOptionStatusRifiutata QuoteOptionStatus = "rifiutata"
)

// WaveStatus is the lifecycle status of a pallet wave
type WaveStatus string

const (
	WaveStatusBozza      WaveStatus = "bozza"
	WaveStatusInviata    WaveStatus = "inviata"
	WaveStatusInCorso    WaveStatus = "in_corso"
	WaveStatusCompletata WaveStatus = "completata"
	WaveStatusAnnullata  WaveStatus = "annullata"
)

// ParseWaveStatus normalizes a requested wave status. Comparison is
// case-insensitive; the second return is false for values outside the enum.
func ParseWaveStatus(s string) (WaveStatus, bool) {
	switch WaveStatus(strings.ToLower(strings.TrimSpace(s))) {
	case WaveStatusBozza:
		return WaveStatusBozza, true
	case WaveStatusInviata:
		return WaveStatusInviata, true
	case WaveStatusInCorso:
		return WaveStatusInCorso, true
	case WaveStatusCompletata:
		return WaveStatusCompletata, true
	case WaveStatusAnnullata:
		return WaveStatusAnnullata, true
	}
	return "", false
}

// WaveActor is the kind of principal requesting a wave transition
type WaveActor string

const (
	WaveActorStaff   WaveActor = "staff"
	WaveActorCarrier WaveActor = "carrier"
)

// CanTransitionWave is the central transition table for wave statuses.
// Staff may set any status unconditionally. A carrier may perform exactly
// one transition: inviata -> in_corso.
func CanTransitionWave(from WaveStatus, actor WaveActor, to WaveStatus) bool {
	switch actor {
	case WaveActorStaff:
		return true
	case WaveActorCarrier:
		return from == WaveStatusInviata && to == WaveStatusInCorso
	}
	return false
}
