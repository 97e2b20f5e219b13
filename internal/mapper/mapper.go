package mapper

import (
	"time"

	"github.com/spst-logistics/spst-api/internal/domain"
)

const timestampLayout = "2006-01-02T15:04:05Z"
const dateLayout = "2006-01-02"

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timestampLayout)
	return &s
}

// ToPartyDTO converts a Party block to PartyDTO
func ToPartyDTO(p domain.Party) domain.PartyDTO {
	return domain.PartyDTO{
		Name:       p.Name,
		Address:    p.Address,
		City:       p.City,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Phone:      p.Phone,
		Email:      p.Email,
		TaxID:      p.TaxID,
	}
}

// FromPartyRequest converts a PartyRequest to a Party block
func FromPartyRequest(req *domain.PartyRequest) domain.Party {
	if req == nil {
		return domain.Party{}
	}
	return domain.Party{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Phone:      req.Phone,
		Email:      req.Email,
		TaxID:      req.TaxID,
	}
}

// ToShipmentDTO converts Shipment to ShipmentDTO
func ToShipmentDTO(shipment *domain.Shipment) domain.ShipmentDTO {
	dto := domain.ShipmentDTO{
		ID:             shipment.ID,
		HumanID:        shipment.HumanID,
		CustomerEmail:  shipment.CustomerEmail,
		Sender:         ToPartyDTO(shipment.Sender),
		Recipient:      ToPartyDTO(shipment.Recipient),
		Billing:        ToPartyDTO(shipment.Billing),
		Status:         shipment.Status,
		ColliN:         shipment.ColliN,
		PesoRealeKg:    shipment.PesoRealeKg,
		DeclaredValue:  shipment.DeclaredValue,
		Currency:       shipment.Currency,
		PickupDate:     formatDate(shipment.PickupDate),
		CarrierName:    shipment.CarrierName,
		TrackingCode:   shipment.TrackingCode,
		Pallet:         shipment.Pallet,
		DutyPaid:       shipment.DutyPaid,
		DutyPaidAt:     formatTimestamp(shipment.DutyPaidAt),
		DutyPaymentRef: shipment.DutyPaymentRef,
		Attachments:    shipment.Attachments,
		CreatedAt:      shipment.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:      shipment.UpdatedAt.UTC().Format(timestampLayout),
	}
	for i := range shipment.Packages {
		dto.Packages = append(dto.Packages, ToPackageDTO(&shipment.Packages[i]))
	}
	return dto
}

// ToPackageDTO converts Package to PackageDTO
func ToPackageDTO(pkg *domain.Package) domain.PackageDTO {
	return domain.PackageDTO{
		ID:       pkg.ID,
		LengthCm: pkg.LengthCm,
		WidthCm:  pkg.WidthCm,
		HeightCm: pkg.HeightCm,
		WeightKg: pkg.WeightKg,
		Contents: pkg.Contents,
	}
}

// ToQuoteDTO converts Quote to QuoteDTO. When clientView is true, hidden
// options are stripped.
func ToQuoteDTO(quote *domain.Quote, clientView bool) domain.QuoteDTO {
	dto := domain.QuoteDTO{
		ID:               quote.ID,
		HumanID:          quote.HumanID,
		CustomerEmail:    quote.CustomerEmail,
		Sender:           ToPartyDTO(quote.Sender),
		Recipient:        ToPartyDTO(quote.Recipient),
		Status:           quote.Status,
		AcceptedOptionID: quote.AcceptedOptionID,
		DeclaredValue:    quote.DeclaredValue,
		Currency:         quote.Currency,
		Notes:            quote.Notes,
		CreatedAt:        quote.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:        quote.UpdatedAt.UTC().Format(timestampLayout),
	}
	for i := range quote.Packages {
		p := quote.Packages[i]
		dto.Packages = append(dto.Packages, domain.PackageDTO{
			ID:       p.ID,
			LengthCm: p.LengthCm,
			WidthCm:  p.WidthCm,
			HeightCm: p.HeightCm,
			WeightKg: p.WeightKg,
			Contents: p.Contents,
		})
	}
	for i := range quote.Options {
		opt := quote.Options[i]
		if clientView && !opt.VisibleToClient {
			continue
		}
		dto.Options = append(dto.Options, ToQuoteOptionDTO(&opt))
	}
	return dto
}

// ToQuoteOptionDTO converts QuoteOption to QuoteOptionDTO
func ToQuoteOptionDTO(option *domain.QuoteOption) domain.QuoteOptionDTO {
	return domain.QuoteOptionDTO{
		ID:              option.ID,
		QuoteID:         option.QuoteID,
		CarrierName:     option.CarrierName,
		Price:           option.Price,
		Currency:        option.Currency,
		TransitDays:     option.TransitDays,
		Status:          option.Status,
		VisibleToClient: option.VisibleToClient,
		Notes:           option.Notes,
	}
}

// ToCarrierDTO converts Carrier to CarrierDTO
func ToCarrierDTO(carrier *domain.Carrier) domain.CarrierDTO {
	return domain.CarrierDTO{
		ID:           carrier.ID,
		Name:         carrier.Name,
		ContactEmail: carrier.ContactEmail,
	}
}

// ToWaveDTO converts PalletWave to WaveDTO
func ToWaveDTO(wave *domain.PalletWave) domain.WaveDTO {
	dto := domain.WaveDTO{
		ID:                wave.ID,
		Code:              wave.Code,
		Status:            wave.Status,
		PlannedPickupDate: wave.PlannedPickupDate.Format(dateLayout),
		PickupWindow:      wave.PickupWindow,
		Notes:             wave.Notes,
		CarrierID:         wave.CarrierID,
		CreatedByID:       wave.CreatedByID,
		PalletCount:       len(wave.Items),
		CreatedAt:         wave.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:         wave.UpdatedAt.UTC().Format(timestampLayout),
	}
	if wave.Carrier != nil {
		dto.CarrierName = wave.Carrier.Name
	}
	for i := range wave.Items {
		item := wave.Items[i]
		itemDTO := domain.WaveItemDTO{
			ID:                  item.ID,
			ShipmentID:          item.ShipmentID,
			RequestedPickupDate: formatDate(item.RequestedPickupDate),
			PlannedPickupDate:   formatDate(item.PlannedPickupDate),
		}
		if item.Shipment != nil {
			shipmentDTO := ToShipmentDTO(item.Shipment)
			itemDTO.Shipment = &shipmentDTO
		}
		dto.Items = append(dto.Items, itemDTO)
	}
	return dto
}

// SumPackages recomputes the derived colli count and real weight
func SumPackages(packages []domain.Package) (int, float64) {
	total := 0.0
	for _, p := range packages {
		total += p.WeightKg
	}
	return len(packages), total
}
