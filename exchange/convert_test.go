package exchange

import (
	"cbr-rate-converter/domain"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"testing"
)

func testTable(t *testing.T, entries ...domain.RateEntry) *domain.RateTable {
	t.Helper()
	if len(entries) == 0 {
		entries = []domain.RateEntry{
			{Code: "USD", Nominal: 1, Name: "Доллар США", Value: 90.00},
			{Code: "HUF", Nominal: 100, Name: "Форинтов", Value: 25.00},
			{Code: "JPY", Nominal: 100, Name: "Иен", Value: 54.7443},
			{Code: "XDR", Nominal: 1, Name: "СДР", Value: 1108.3903},
			{Code: "RUB", Nominal: 1, Name: domain.PivotName, Value: 1.0},
		}
	}
	table, err := domain.NewRateTable(entries)
	require.NoError(t, err)
	return table
}

func TestConvert(t *testing.T) {
	table := testTable(t)

	type args struct {
		amount domain.Amount
		from   domain.Currency
		to     domain.Currency
	}
	tests := []struct {
		name string
		args args
		want domain.Amount
	}{
		{"usd -> rub", args{100, "USD", "RUB"}, 9000.0},
		{"usd -> huf", args{100, "USD", "HUF"}, 36000.0},
		{"rub -> usd", args{9000, "RUB", "USD"}, 100.0},
		{"huf -> rub", args{1000, "HUF", "RUB"}, 250.0},
		{"case insensitive identity", args{50, "usd", "USD"}, 50.0},
		{"padded codes", args{1, " usd ", "rub\t"}, 90.0},
		{"zero amount", args{0, "USD", "HUF"}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.args.amount, tt.args.from, tt.args.to, table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_IdentityIsExact(t *testing.T) {
	table := testTable(t)
	for _, code := range table.Codes() {
		for _, amount := range []domain.Amount{0, 0.1, 1, 123.456789, 1e12} {
			got, err := Convert(amount, code, code, table)
			require.NoError(t, err)
			assert.Equal(t, amount, got, "%v %v", amount, code)
		}
	}

	// identity does not consult the table
	got, err := Convert(7, "ZZZ", "zzz", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(7), got)
}

func TestConvert_InverseAndLinear(t *testing.T) {
	table := testTable(t)
	codes := table.Codes()

	for _, x := range codes {
		for _, y := range codes {
			for _, a := range []domain.Amount{0.5, 1, 100, 98765.4321} {
				xy, err := Convert(a, x, y, table)
				require.NoError(t, err)

				unitYX, err := Convert(1, y, x, table)
				require.NoError(t, err)
				assert.InEpsilon(t, float64(a)/float64(unitYX), float64(xy), 1e-12, "%v %v->%v", a, x, y)

				double, err := Convert(2*a, x, y, table)
				require.NoError(t, err)
				assert.InEpsilon(t, 2*float64(xy), float64(double), 1e-12, "%v %v->%v", a, x, y)
			}
		}
	}
}

func TestConvert_Errors(t *testing.T) {
	table := testTable(t)
	broken := testTable(t,
		domain.RateEntry{Code: "RUB", Nominal: 1, Value: 1},
		domain.RateEntry{Code: "AAA", Nominal: 0, Value: 10},
		domain.RateEntry{Code: "BBB", Nominal: -5, Value: 10},
		domain.RateEntry{Code: "ZZZ", Nominal: 1, Value: 0},
	)

	tests := []struct {
		name   string
		amount domain.Amount
		from   domain.Currency
		to     domain.Currency
		table  *domain.RateTable
		want   error
		msg    string
	}{
		{"negative amount", -1, "USD", "RUB", table, ErrNegativeAmount, "amount must not be negative: -1"},
		{"nan amount", domain.Amount(math.NaN()), "USD", "RUB", table, ErrAmountNotFinite, "amount must be a finite number: NaN"},
		{"inf amount", domain.Amount(math.Inf(1)), "USD", "RUB", table, ErrAmountNotFinite, "amount must be a finite number: +Inf"},
		{"negative inf amount", domain.Amount(math.Inf(-1)), "USD", "USD", table, ErrAmountNotFinite, "amount must be a finite number: -Inf"},
		{"unknown from", 1, "abc", "RUB", table, ErrUnknownSource, "unknown source currency: ABC"},
		{"unknown to", 1, "USD", "xyz", table, ErrUnknownTarget, "unknown target currency: XYZ"},
		{"both unknown reports from", 1, "ABC", "XYZ", table, ErrUnknownSource, "unknown source currency: ABC"},
		{"nil table", 1, "USD", "RUB", nil, ErrInvalidTable, "invalid rate table"},
		{"zero nominal from", 1, "AAA", "RUB", broken, ErrInvalidNominal, "invalid nominal: AAA"},
		{"negative nominal to", 1, "RUB", "BBB", broken, ErrInvalidNominal, "invalid nominal: BBB"},
		{"zero target rate", 1, "RUB", "ZZZ", broken, ErrZeroRate, "zero rate: ZZZ"},
		{"result overflows", 1e308, "USD", "HUF", table, ErrResultOverflow, "converted amount is too large: 1e+308"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.amount, tt.from, tt.to, tt.table)
			assert.Zero(t, got)

			var convErr *ConversionError
			require.True(t, errors.As(err, &convErr), "want *ConversionError, got %v", err)
			assert.True(t, errors.Is(err, tt.want), "want %v, got %v", tt.want, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestConvert_ErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrAmountNotFinite, ErrNegativeAmount, ErrUnknownSource, ErrUnknownTarget, ErrInvalidNominal, ErrZeroRate, ErrInvalidTable, ErrResultOverflow}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j {
				assert.False(t, errors.Is(&ConversionError{Err: a}, b), "%v is %v", a, b)
			}
		}
	}
}

func TestCrossRate(t *testing.T) {
	table := testTable(t)

	rate, err := CrossRate("USD", "HUF", table)
	require.NoError(t, err)
	assert.Equal(t, domain.Rate(360.0), rate)

	rate, err = CrossRate("HUF", "HUF", table)
	require.NoError(t, err)
	assert.Equal(t, domain.Rate(1.0), rate)

	_, err = CrossRate("USD", "EUR", table)
	assert.True(t, errors.Is(err, ErrUnknownTarget))
}

func TestSupportedCodes(t *testing.T) {
	codes, err := SupportedCodes(testTable(t))
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{"HUF", "JPY", "RUB", "USD", "XDR"}, codes)
	assert.Contains(t, codes, domain.Pivot)

	_, err = SupportedCodes(nil)
	assert.True(t, errors.Is(err, ErrInvalidTable))

	_, err = SupportedCodes(testTable(t, domain.RateEntry{Code: "USD", Nominal: 1, Value: 90}))
	assert.True(t, errors.Is(err, ErrInvalidTable))
}
