package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbr-generator-go/internal/types"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

var tokenKeys = []string{
	TokenTicketCount,
	TokenProactivePct,
	TokenReactivePct,
	TokenSameDayRate,
	TokenCriticalResTime,
	TokenAvgFirstResponse,
}

func TestAggregateEmptyInputUsesDefaults(t *testing.T) {
	tokens := Aggregate(nil, DefaultClassification()).Tokens()

	require.Len(t, tokens, len(tokenKeys))
	for _, k := range tokenKeys {
		assert.Contains(t, tokens, k)
	}
	assert.Equal(t, "0", tokens[TokenTicketCount])
	assert.Equal(t, "N/A", tokens[TokenProactivePct])
	assert.Equal(t, "N/A", tokens[TokenAvgFirstResponse])
}

func TestAggregatePercentagesSumToHundred(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, TicketTypeID: intp(30)},  // proactive
		{ID: 2, TicketTypeID: intp(1)},   // reactive
		{ID: 3, TicketTypeID: intp(1)},   // reactive
		{ID: 4, TicketTypeID: intp(777)}, // unmatched, out of the base
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, 33, res.ProactivePct)
	assert.Equal(t, 67, res.ReactivePct)
	assert.Equal(t, 100, res.ProactivePct+res.ReactivePct)
}

func TestAggregateNoClassifiedTickets(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, TicketTypeID: intp(777)},
		{ID: 2}, // nil type
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, 0, res.ProactivePct)
	assert.Equal(t, 0, res.ReactivePct)
	assert.Equal(t, 2, res.TicketCount)
}

func TestAggregateSameDayOnlyCountsStrictlyClosed(t *testing.T) {
	tickets := []types.Ticket{
		// closed absent and closed=false never enter the denominator
		{ID: 1, DateOccurred: "2025-03-01T09:00:00", DateClosed: "2025-03-01T10:00:00"},
		{ID: 2, HasBeenClosed: boolp(false), DateOccurred: "2025-03-01T09:00:00", DateClosed: "2025-03-01T10:00:00"},
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, 0, res.SameDayRate)
}

func TestAggregateCriticalNonPositiveAges(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, PriorityID: intp(1), TicketAge: -4},
		{ID: 2, PriorityID: intp(1), TicketAge: 0},
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, "< 1 hour", res.CriticalResTime)
}

func TestAggregateNegativeAgeStaysInDenominator(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, PriorityID: intp(1), TicketAge: 100},
		{ID: 2, PriorityID: intp(1), TicketAge: -12},
	}

	// 100 / 2 tickets, the bad age is excluded from the sum only
	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, "50.0 hours", res.CriticalResTime)
}

func TestAggregateNegativeResponseElapsedIsSkipped(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, DateOccurred: "2025-03-01T10:00:00", ResponseDate: "2025-03-01T09:00:00"}, // clock skew
		{ID: 2, DateOccurred: "2025-03-01T09:00:00", ResponseDate: "2025-03-01T09:30:00"},
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, "30 mins", res.AvgFirstResponse)
}

func TestAggregateNeverRespondedSentinel(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, DateOccurred: "2025-03-01T09:00:00", ResponseDate: "0001-01-01T00:00:00"},
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, "N/A", res.AvgFirstResponse)
}

func TestAggregateMalformedTimestampsDoNotAbort(t *testing.T) {
	tickets := []types.Ticket{
		{ID: 1, DateOccurred: "not a date", ResponseDate: "also bad"},
		{ID: 2, TicketTypeID: intp(1)},
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, 2, res.TicketCount)
	assert.Equal(t, 100, res.ReactivePct)
	assert.Equal(t, "N/A", res.AvgFirstResponse)
}

func TestAggregateQuarterlyBatch(t *testing.T) {
	tickets := []types.Ticket{
		{
			ID:            1,
			TicketTypeID:  intp(1),
			HasBeenClosed: boolp(true),
			DateOccurred:  "2025-01-06T09:00:00",
			ResponseDate:  "2025-01-06T09:15:00",
			DateClosed:    "2025-01-06T16:00:00",
		},
		{
			ID:            2,
			TicketTypeID:  intp(777),
			HasBeenClosed: boolp(true),
			DateOccurred:  "2025-01-07T11:00:00",
			ResponseDate:  "2025-01-07T11:05:00",
			DateClosed:    "2025-01-07T12:00:00",
		},
		{
			ID:            3,
			TicketTypeID:  intp(1),
			PriorityID:    intp(1),
			TicketAge:     52,
			HasBeenClosed: boolp(true),
			DateOccurred:  "2025-01-08T08:00:00",
			ResponseDate:  "2025-01-08T08:05:00",
			DateClosed:    "2025-01-10T12:00:00",
		},
		{
			ID:            4,
			TicketTypeID:  intp(777),
			HasBeenClosed: boolp(true),
			DateOccurred:  "2025-01-09T14:00:00",
			ResponseDate:  "2025-01-09T14:10:00",
			DateClosed:    "2025-01-09T15:00:00",
		},
	}

	res := Aggregate(tickets, DefaultClassification())
	assert.Equal(t, 4, res.TicketCount)
	assert.Equal(t, 0, res.ProactivePct)
	assert.Equal(t, 100, res.ReactivePct)
	assert.Equal(t, 75, res.SameDayRate)
	assert.Equal(t, "52.0 hours", res.CriticalResTime)
	assert.Equal(t, "8 mins", res.AvgFirstResponse) // floor of 8.75
}

func TestTokensAlwaysCarrySixKeys(t *testing.T) {
	for _, res := range []Result{Default(), Aggregate([]types.Ticket{{ID: 1}}, DefaultClassification())} {
		tokens := res.Tokens()
		require.Len(t, tokens, len(tokenKeys))
		for _, k := range tokenKeys {
			assert.Contains(t, tokens, k)
		}
	}
}
