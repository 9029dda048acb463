package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/casteleyn/rollbook/directory"
)

func TestParseCategoryChangeReport(t *testing.T) {
	p := NewJSONParser(zaptest.NewLogger(t).Sugar())

	events, err := p.ParseCategoryChangeReport([]byte(`[
		{"timestamp": "2024-03-01T10:00:00Z", "person_id": "42", "person_name": "Jo Smith", "from": "Visitor", "to": "Member"},
		{"timestamp": "garbage", "person_id": "7", "from": "Member", "to": "Visitor"},
		{"timestamp": "2024-04-01", "from": "Member", "to": "Visitor"},
		{"timestamp": "2024-05-02", "person_name": "Pat Jones", "from": "Member", "to": "Visitor"}
	]`))
	require.NoError(t, err)

	// The garbage timestamp and the row with no identity are skipped.
	require.Len(t, events, 2)
	assert.Equal(t, directory.PersonID("42"), events[0].PersonID)
	assert.Equal(t, "Member", events[0].To)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), events[0].Timestamp)
	assert.Equal(t, "Pat Jones", events[1].PersonName)
	assert.Empty(t, events[1].PersonID)
}

func TestParseCategoryChangeReportBadPayload(t *testing.T) {
	p := NewJSONParser(nil)
	_, err := p.ParseCategoryChangeReport([]byte(`{"not": "an array"}`))
	require.Error(t, err)
}

func TestParseVisitorReport(t *testing.T) {
	p := NewJSONParser(zaptest.NewLogger(t).Sugar())

	records, err := p.ParseVisitorReport([]byte(`[
		{"name": "Jo Smith", "member_id": "abc-123", "location": "First Service", "date": "2024-03-03"},
		{"name": "Pat Jones", "date": "not a date"},
		{"location": "Second Service", "date": "2024-03-10"},
		{"member_id": "99", "date": "03/17/2024"}
	]`))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Jo Smith", records[0].DisplayName)
	assert.Equal(t, "abc-123", records[0].MemberIDHint)
	assert.Equal(t, 2024, records[0].ReportYear)
	assert.Equal(t, "99", records[1].MemberIDHint)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), records[1].Date)
}
