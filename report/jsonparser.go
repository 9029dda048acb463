package report

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/match"
	"github.com/casteleyn/rollbook/replay"
)

// JSONParser parses the directory's JSON report exports. Malformed rows are
// skipped with a diagnostic; only a payload that fails to decode at all is an
// error.
type JSONParser struct {
	log *zap.SugaredLogger
}

// NewJSONParser creates a parser. log may be nil.
func NewJSONParser(log *zap.SugaredLogger) *JSONParser {
	return &JSONParser{log: log}
}

var reportDateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

func parseReportDate(value string) (time.Time, bool) {
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type categoryChangeRow struct {
	Timestamp  string `json:"timestamp"`
	PersonID   string `json:"person_id"`
	PersonName string `json:"person_name"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ParseCategoryChangeReport decodes category-change rows into replay events.
// Rows with an unparseable timestamp, or with neither an id nor a name, are
// skipped.
func (p *JSONParser) ParseCategoryChangeReport(b []byte) ([]replay.Event, error) {
	var rows []categoryChangeRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, errors.Wrap(err, "decode category change report")
	}

	events := make([]replay.Event, 0, len(rows))
	for _, row := range rows {
		ts, ok := parseReportDate(row.Timestamp)
		if !ok {
			p.skip("category change", errors.ErrUnparseableDate, row.Timestamp, row.PersonName)
			continue
		}
		if row.PersonID == "" && row.PersonName == "" {
			p.skip("category change", errors.ErrUnparseableIdentifier, row.Timestamp, "")
			continue
		}
		events = append(events, replay.Event{
			Timestamp:  ts,
			PersonID:   directory.PersonID(row.PersonID),
			PersonName: row.PersonName,
			From:       row.From,
			To:         row.To,
		})
	}
	return events, nil
}

type visitorRow struct {
	Name     string `json:"name"`
	MemberID string `json:"member_id"`
	Location string `json:"location"`
	Date     string `json:"date"`
}

// ParseVisitorReport decodes visitor rows into attendance records. The report
// year of each record is taken from the row's own date. Rows with an
// unparseable date, or with neither an id nor a name, are skipped.
func (p *JSONParser) ParseVisitorReport(b []byte) ([]match.Record, error) {
	var rows []visitorRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, errors.Wrap(err, "decode visitor report")
	}

	records := make([]match.Record, 0, len(rows))
	for _, row := range rows {
		date, ok := parseReportDate(row.Date)
		if !ok {
			p.skip("visitor", errors.ErrUnparseableDate, row.Date, row.Name)
			continue
		}
		if row.Name == "" && row.MemberID == "" {
			p.skip("visitor", errors.ErrUnparseableIdentifier, row.Date, "")
			continue
		}
		records = append(records, match.Record{
			DisplayName:  row.Name,
			MemberIDHint: row.MemberID,
			RawLocation:  row.Location,
			ReportYear:   date.Year(),
			Date:         date,
		})
	}
	return records, nil
}

func (p *JSONParser) skip(report string, reason error, value, name string) {
	if p.log != nil {
		p.log.Warnw("skipping report row",
			"report", report, "reason", reason, "value", value, "name", name)
	}
}
