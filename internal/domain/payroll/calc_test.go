package payroll

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/koshtony/beezy-beta/internal/platform/config"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func defaultSettings() Settings {
	return Settings{
		BandOneLimit:      d("24000"),
		BandOneRate:       d("0.10"),
		BandTwoLimit:      d("40667"),
		BandTwoRate:       d("0.25"),
		TopRate:           d("0.30"),
		NSSFRate:          d("0.06"),
		NSSFCap:           d("2160"),
		SHIFRate:          d("0.0275"),
		HousingLevyRate:   d("0.015"),
		OvertimeHourlyPay: d("150"),
	}
}

func TestPAYEBands(t *testing.T) {
	s := defaultSettings()
	cases := map[string]string{
		"0":     "0",
		"20000": "2000",
		"24000": "2400",
		"30000": "3900",
		"40667": "6566.75",
		"55000": "10866.65",
	}
	for gross, want := range cases {
		if got := PAYE(s, d(gross)).Round(2); !got.Equal(d(want)) {
			t.Fatalf("PAYE(%s): expected %s, got %s", gross, want, got)
		}
	}
}

func TestComputeTopBand(t *testing.T) {
	b := Compute(defaultSettings(), d("50000"), d("5000"), d("1000"), decimal.Zero)

	expect := map[string][2]decimal.Decimal{
		"gross": {b.GrossPay, d("55000")},
		"paye":  {b.PAYE, d("10866.65")},
		"shif":  {b.SHIF, d("1512.5")},
		"nssf":  {b.NSSF, d("2160")},
		"levy":  {b.HousingLevy, d("825")},
		"net":   {b.NetPay, d("38635.85")},
	}
	for name, pair := range expect {
		if !pair[0].Equal(pair[1]) {
			t.Fatalf("%s: expected %s, got %s", name, pair[1], pair[0])
		}
	}
}

func TestComputeWithOvertime(t *testing.T) {
	ot := Overtime{HoursWorked: d("10"), HourlyRate: d("150")}
	b := Compute(defaultSettings(), d("18500"), decimal.Zero, decimal.Zero, ot.Amount())

	if !b.OvertimePay.Equal(d("1500")) || !b.GrossPay.Equal(d("20000")) {
		t.Fatalf("expected overtime 1500 and gross 20000, got %s and %s", b.OvertimePay, b.GrossPay)
	}
	// Below the NSSF cap: 6% of gross.
	if !b.NSSF.Equal(d("1200")) {
		t.Fatalf("expected NSSF 1200, got %s", b.NSSF)
	}
	if !b.NetPay.Equal(d("15950")) {
		t.Fatalf("expected net 15950, got %s", b.NetPay)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.PayrollConfig{BandOneLimit: d("1"), TopRate: d("0.3")}
	s := SettingsFromConfig(cfg)
	if !s.BandOneLimit.Equal(d("1")) || !s.TopRate.Equal(d("0.3")) {
		t.Fatalf("settings not carried over: %+v", s)
	}
}
