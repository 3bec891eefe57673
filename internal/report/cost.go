package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"outagewatch/internal/storage"
)

var (
	secondsPerHour = decimal.NewFromInt(3600)
	hundred        = decimal.NewFromInt(100)
)

// MonthlyCost is the downtime and its price for one calendar month.
type MonthlyCost struct {
	Year            int
	Month           time.Month
	Outages         int
	DowntimeSeconds int64
	DaysInMonth     int
	HourlyRate      decimal.Decimal
	PercentDowntime decimal.Decimal
	Cost            decimal.Decimal
}

// CostReport aggregates monthly costs; Months is ordered newest first.
type CostReport struct {
	MonthlyRate                 decimal.Decimal
	Months                      []MonthlyCost
	TotalCost                   decimal.Decimal
	AverageMonthlyCost          decimal.Decimal
	TotalDowntimeHours          decimal.Decimal
	AverageMonthlyDowntimeHours decimal.Decimal
	EffectiveHourlyRate         decimal.Decimal
}

type monthKey struct {
	year  int
	month time.Month
}

// ParseRate parses a monthly rate given on the command line.
func ParseRate(v string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: rate %q is not a number", ErrInvalidArgument, v)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: rate cannot be negative", ErrInvalidArgument)
	}
	return rate, nil
}

// Cost prices downtime against a monthly subscription rate. Each closed
// outage is attributed entirely to the month (UTC) in which it started.
func Cost(records []storage.OutageRecord, monthlyRate decimal.Decimal) (CostReport, error) {
	if monthlyRate.IsNegative() {
		return CostReport{}, fmt.Errorf("%w: rate cannot be negative", ErrInvalidArgument)
	}

	report := CostReport{
		MonthlyRate:                 monthlyRate,
		TotalCost:                   decimal.Zero,
		AverageMonthlyCost:          decimal.Zero,
		TotalDowntimeHours:          decimal.Zero,
		AverageMonthlyDowntimeHours: decimal.Zero,
		EffectiveHourlyRate:         decimal.Zero,
	}

	groups := lo.GroupBy(closedOnly(records), func(r storage.OutageRecord) monthKey {
		start := r.StartTime.UTC()
		return monthKey{year: start.Year(), month: start.Month()}
	})
	if len(groups) == 0 {
		return report, nil
	}

	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year > keys[j].year
		}
		return keys[i].month > keys[j].month
	})

	var totalSeconds int64
	for _, key := range keys {
		outages := groups[key]
		seconds := lo.SumBy(outages, func(r storage.OutageRecord) int64 { return r.DurationSeconds.Int64 })
		month := priceMonth(key, len(outages), seconds, monthlyRate)

		report.Months = append(report.Months, month)
		report.TotalCost = report.TotalCost.Add(month.Cost)
		totalSeconds += seconds
	}

	months := decimal.NewFromInt(int64(len(report.Months)))
	report.AverageMonthlyCost = report.TotalCost.Div(months)
	report.TotalDowntimeHours = decimal.NewFromInt(totalSeconds).Div(secondsPerHour)
	report.AverageMonthlyDowntimeHours = report.TotalDowntimeHours.Div(months)
	if report.TotalDowntimeHours.IsPositive() {
		report.EffectiveHourlyRate = report.TotalCost.Div(report.TotalDowntimeHours)
	}
	return report, nil
}

func priceMonth(key monthKey, outages int, seconds int64, monthlyRate decimal.Decimal) MonthlyCost {
	days := DaysInMonth(key.year, key.month)
	hoursInMonth := decimal.NewFromInt(int64(days) * 24)
	secondsInMonth := hoursInMonth.Mul(secondsPerHour)
	downtime := decimal.NewFromInt(seconds)

	return MonthlyCost{
		Year:            key.year,
		Month:           key.month,
		Outages:         outages,
		DowntimeSeconds: seconds,
		DaysInMonth:     days,
		HourlyRate:      monthlyRate.Div(hoursInMonth),
		PercentDowntime: downtime.Div(secondsInMonth).Mul(hundred),
		// HourlyRate × downtime hours, computed without the rounded rate.
		Cost: monthlyRate.Mul(downtime).Div(secondsInMonth),
	}
}
