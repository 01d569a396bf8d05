package utils

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in      string
		twoDP   bool
		fits    bool
		rounded string
	}{
		{in: "250", twoDP: true, fits: true, rounded: "250"},
		{in: "250.50", twoDP: true, fits: true, rounded: "250.5"},
		{in: "0.005", twoDP: false, fits: false, rounded: "0.01"},
		{in: "9999999999.99", twoDP: true, fits: true, rounded: "9999999999.99"},
		{in: "10000000000", twoDP: true, fits: false, rounded: "10000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d := decimal.RequireFromString(tt.in)
			check.Equal(t, tt.twoDP, HasAtMostTwoPlaces(d))
			check.Equal(t, tt.fits, FitsMoneyColumn(d))
			check.Equal(t, tt.rounded, Round2(d).String())
		})
	}
}

type patchDTO struct {
	Name   *string          `json:"name" patch:"delivery_location"`
	Volume *decimal.Decimal `json:"cargo_volume"`
	Date   *string          `json:"pickup_date" patch:"-"`
	Note   *string          `json:"note"`
	Hidden *string          `json:"-"`
}

func TestPtrDTO(t *testing.T) {
	name := "  Batumi "
	vol := decimal.RequireFromString("1.234")
	date := "2025-04-01"
	hidden := "x"
	dto := patchDTO{Name: &name, Volume: &vol, Date: &date, Hidden: &hidden}

	NormalizePtrDTO(&dto)
	check.Equal(t, "Batumi", *dto.Name)
	check.Equal(t, "1.23", dto.Volume.String())

	updates := UpdatesFromPtrDTO(&dto)
	check.Equal(t, 2, len(updates))
	check.True(t, updates["delivery_location"] == "Batumi")
	for _, column := range []string{"name", "pickup_date", "note", "Hidden"} {
		_, ok := updates[column]
		check.False(t, ok)
	}
	check.Equal(t, 0, len(UpdatesFromPtrDTO(dto)))
}

func TestNormalizeDTO(t *testing.T) {
	dto := struct {
		Company string
		Price   decimal.Decimal
		ETA     int
	}{Company: " Fast Trucks ", Price: decimal.RequireFromString("10.999"), ETA: 5}

	NormalizeDTO(&dto)
	check.Equal(t, "Fast Trucks", dto.Company)
	check.Equal(t, "11", dto.Price.String())
	check.Equal(t, 5, dto.ETA)
}

func TestParseIntDefault(t *testing.T) {
	check.Equal(t, 3, ParseIntDefault(" 3 ", 1))
	check.Equal(t, 1, ParseIntDefault("", 1))
	check.Equal(t, 1, ParseIntDefault("-2", 1))
	check.Equal(t, 1, ParseIntDefault("abc", 1))
}
