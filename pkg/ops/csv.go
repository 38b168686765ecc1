package ops

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity selects the period covered by one CSV export.
type Granularity string

const (
	GranularityDaily     Granularity = "daily"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
)

// ParseGranularity validates a granularity token.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityDaily, GranularityMonthly, GranularityQuarterly:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// PeriodDays expands a period key into the calendar days it covers.
// Keys: daily "2006-01-02", monthly "2006-01", quarterly "2006-Q1".
func PeriodDays(g Granularity, periodKey string) ([]time.Time, error) {
	switch g {
	case GranularityDaily:
		day, err := time.Parse("2006-01-02", periodKey)
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", periodKey, err)
		}
		return []time.Time{day}, nil

	case GranularityMonthly:
		first, err := time.Parse("2006-01", periodKey)
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", periodKey, err)
		}
		return monthDays(first), nil

	case GranularityQuarterly:
		parts := strings.SplitN(periodKey, "-Q", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("period %q: want YYYY-Qn", periodKey)
		}
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", periodKey, err)
		}
		quarter, err := strconv.Atoi(parts[1])
		if err != nil || quarter < 1 || quarter > 4 {
			return nil, fmt.Errorf("period %q: quarter out of range", periodKey)
		}
		var days []time.Time
		for m := 0; m < 3; m++ {
			first := time.Date(year, time.Month((quarter-1)*3+1+m), 1, 0, 0, 0, 0, time.UTC)
			days = append(days, monthDays(first)...)
		}
		return days, nil
	}
	return nil, fmt.Errorf("unknown granularity %q", g)
}

func monthDays(first time.Time) []time.Time {
	var days []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// CSVExport is a derived artifact, always reproducible from the ledgers.
type CSVExport struct {
	FileName string
	Text     string
}

var (
	expenseHeader = []string{"日付", "品目", "部門", "金額", "備考", "申請者", "承認者", "状態"}
	salesHeader   = []string{"日付", "売上合計", "カード", "経費", "残金", "備考", "申請者", "承認者", "状態"}
)

// BuildCSV scans the period's daily ledgers and serializes the approved
// records into a delimited file. Missing days are skipped. The output is
// deterministic for unchanged ledgers, so regeneration is idempotent.
func BuildCSV(ctx context.Context, ledgers *LedgerStore, scope LedgerScope, g Granularity, periodKey string) (*CSVExport, error) {
	days, err := PeriodDays(g, periodKey)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := expenseHeader
	if scope.Feature == FeatureSales {
		header = salesHeader
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("build csv: %w", err)
	}

	for _, day := range days {
		ledger, err := ledgers.Load(ctx, scope, day)
		if err != nil {
			return nil, err
		}
		for i := range ledger.Records {
			rec := &ledger.Records[i]
			if rec.Status != StatusApproved {
				continue
			}
			if err := w.Write(csvRow(scope.Feature, rec)); err != nil {
				return nil, fmt.Errorf("build csv: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("build csv: %w", err)
	}

	return &CSVExport{
		FileName: fmt.Sprintf("%s-%s-%s.csv", scope.Feature, scope.StoreID, periodKey),
		Text:     sb.String(),
	}, nil
}

func csvRow(f Feature, rec *RequestRecord) []string {
	if f == FeatureSales {
		return []string{
			rec.Date,
			strconv.Itoa(rec.Total),
			strconv.Itoa(rec.Card),
			strconv.Itoa(rec.Cost),
			strconv.Itoa(rec.Remain()),
			rec.Note,
			rec.RequesterName,
			rec.ApproverName,
			rec.Status.Export(),
		}
	}
	return []string{
		rec.Date,
		rec.Item,
		rec.Department,
		strconv.Itoa(rec.Amount),
		rec.Note,
		rec.RequesterName,
		rec.ApproverName,
		rec.Status.Export(),
	}
}

// Exporter regenerates and uploads CSV artifacts after lifecycle transitions
// and on explicit export commands.
type Exporter struct {
	ledgers *LedgerStore
	objects csvUploader
}

type csvUploader interface {
	SaveBuffer(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// NewExporter creates an Exporter writing into the store's csv/ prefix.
func NewExporter(ledgers *LedgerStore, objects csvUploader) *Exporter {
	return &Exporter{ledgers: ledgers, objects: objects}
}

// Export builds the CSV for a period and uploads it, returning the export and
// its public URL.
func (e *Exporter) Export(ctx context.Context, scope LedgerScope, g Granularity, periodKey string) (*CSVExport, string, error) {
	export, err := BuildCSV(ctx, e.ledgers, scope, g, periodKey)
	if err != nil {
		return nil, "", err
	}
	key := CSVKey(scope.GuildID, scope.Feature, scope.StoreID, export.FileName)
	if err := e.objects.SaveBuffer(ctx, key, []byte(export.Text), "text/csv"); err != nil {
		return nil, "", err
	}
	return export, e.objects.PublicURL(key), nil
}

// RefreshDay regenerates the daily export for the record's day and, when the
// transition was an approval, the monthly export too.
func (e *Exporter) RefreshDay(ctx context.Context, scope LedgerScope, day time.Time, approved bool) error {
	if _, _, err := e.Export(ctx, scope, GranularityDaily, day.Format("2006-01-02")); err != nil {
		return err
	}
	if approved {
		if _, _, err := e.Export(ctx, scope, GranularityMonthly, day.Format("2006-01")); err != nil {
			return err
		}
	}
	return nil
}
