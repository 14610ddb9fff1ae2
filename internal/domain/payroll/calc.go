package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/koshtony/beezy-beta/internal/platform/config"
)

// Settings are the statutory rates payroll is computed with.
type Settings struct {
	BandOneLimit      decimal.Decimal
	BandOneRate       decimal.Decimal
	BandTwoLimit      decimal.Decimal
	BandTwoRate       decimal.Decimal
	TopRate           decimal.Decimal
	NSSFRate          decimal.Decimal
	NSSFCap           decimal.Decimal
	SHIFRate          decimal.Decimal
	HousingLevyRate   decimal.Decimal
	OvertimeHourlyPay decimal.Decimal
}

func SettingsFromConfig(c config.PayrollConfig) Settings {
	return Settings(c)
}

// Breakdown holds the computed figures of one payroll, rounded to cents.
type Breakdown struct {
	OvertimePay decimal.Decimal `json:"overtimePay"`
	GrossPay    decimal.Decimal `json:"grossPay"`
	PAYE        decimal.Decimal `json:"paye"`
	SHIF        decimal.Decimal `json:"shif"`
	NSSF        decimal.Decimal `json:"nssf"`
	HousingLevy decimal.Decimal `json:"housingLevy"`
	NetPay      decimal.Decimal `json:"netPay"`
}

// Compute derives gross and net pay. Statutory deductions are taken on the
// gross, NSSF is capped, and other deductions come off after tax.
func Compute(s Settings, basic, allowances, deductions, overtime decimal.Decimal) Breakdown {
	gross := basic.Add(allowances).Add(overtime)
	paye := PAYE(s, gross)
	shif := gross.Mul(s.SHIFRate)
	nssf := decimal.Min(gross.Mul(s.NSSFRate), s.NSSFCap)
	levy := gross.Mul(s.HousingLevyRate)
	net := gross.Sub(paye.Add(shif).Add(nssf).Add(levy).Add(deductions))

	return Breakdown{
		OvertimePay: overtime.Round(2),
		GrossPay:    gross.Round(2),
		PAYE:        paye.Round(2),
		SHIF:        shif.Round(2),
		NSSF:        nssf.Round(2),
		HousingLevy: levy.Round(2),
		NetPay:      net.Round(2),
	}
}

// PAYE applies the three progressive bands to gross pay.
func PAYE(s Settings, gross decimal.Decimal) decimal.Decimal {
	if !gross.IsPositive() {
		return decimal.Zero
	}
	if gross.LessThanOrEqual(s.BandOneLimit) {
		return gross.Mul(s.BandOneRate)
	}
	bandOne := s.BandOneLimit.Mul(s.BandOneRate)
	if gross.LessThanOrEqual(s.BandTwoLimit) {
		return bandOne.Add(gross.Sub(s.BandOneLimit).Mul(s.BandTwoRate))
	}
	bandTwo := s.BandTwoLimit.Sub(s.BandOneLimit).Mul(s.BandTwoRate)
	return bandOne.Add(bandTwo).Add(gross.Sub(s.BandTwoLimit).Mul(s.TopRate))
}
