package metrics

import (
	"fmt"
	"strings"
	"time"

	"qbr-generator-go/internal/logger"
	"qbr-generator-go/internal/types"
)

// Token keys used by the deck template. Every key is always present in
// Result.Tokens(), even for empty or fully degenerate input.
const (
	TokenTicketCount      = "{{TICKET_COUNT}}"
	TokenProactivePct     = "{{PROACTIVE_PERCENT}}"
	TokenReactivePct      = "{{REACTIVE_PERCENT}}"
	TokenSameDayRate      = "{{SAME_DAY_RATE}}"
	TokenCriticalResTime  = "{{CRITICAL_RES_TIME}}"
	TokenAvgFirstResponse = "{{AVG_FIRST_RESPONSE}}"
)

// Classification holds the ticket type id sets used to split tickets into
// proactive and reactive work. Ids in neither set are excluded from the
// percentage base entirely.
type Classification struct {
	ProactiveTypes []int
	ReactiveTypes  []int
}

// DefaultClassification returns the HaloPSA type id sets used in production.
func DefaultClassification() Classification {
	return Classification{
		ProactiveTypes: []int{30, 40, 100},
		ReactiveTypes: []int{
			1, 10, 20, 50, 60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 72, 9999,
		},
	}
}

func (c Classification) isProactive(id int) bool { return containsInt(c.ProactiveTypes, id) }
func (c Classification) isReactive(id int) bool  { return containsInt(c.ReactiveTypes, id) }

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Result carries the six report values. String fields are already rendered
// the way the deck shows them ("52.0 hours", "8 mins", "N/A").
type Result struct {
	TicketCount      int
	ProactivePct     int
	ReactivePct      int
	SameDayRate      int
	CriticalResTime  string
	AvgFirstResponse string

	defaulted bool
}

// Tokens renders the result as the fixed six-key replacement map.
func (r Result) Tokens() map[string]string {
	if r.defaulted {
		return map[string]string{
			TokenTicketCount:      "0",
			TokenProactivePct:     "N/A",
			TokenReactivePct:      "N/A",
			TokenSameDayRate:      "N/A",
			TokenCriticalResTime:  "N/A",
			TokenAvgFirstResponse: "N/A",
		}
	}
	return map[string]string{
		TokenTicketCount:      fmt.Sprintf("%d", r.TicketCount),
		TokenProactivePct:     fmt.Sprintf("%d", r.ProactivePct),
		TokenReactivePct:      fmt.Sprintf("%d", r.ReactivePct),
		TokenSameDayRate:      fmt.Sprintf("%d", r.SameDayRate),
		TokenCriticalResTime:  r.CriticalResTime,
		TokenAvgFirstResponse: r.AvgFirstResponse,
	}
}

// Default returns the result used when no usable ticket data exists.
func Default() Result {
	return Result{
		CriticalResTime:  "N/A",
		AvgFirstResponse: "N/A",
		defaulted:        true,
	}
}

// Aggregate reduces a batch of tickets into the report metrics in a single
// pass. It never fails: per-record data quality problems (bad timestamps,
// clock skew, negative ages) are logged and that record's contribution to
// the one affected metric is skipped, all other metrics still apply.
func Aggregate(tickets []types.Ticket, cfg Classification) Result {
	log := logger.Component("metrics")

	if len(tickets) == 0 {
		log.Warn("no ticket data provided, all metrics defaulted")
		return Default()
	}

	var (
		proactiveCount  int
		reactiveCount   int
		closedTickets   int
		sameDayCount    int
		criticalTickets int
		criticalAgeSum  float64
		validResponses  int
		responseMinutes float64
	)

	for _, t := range tickets {
		// Proactive vs reactive split
		if t.TicketTypeID != nil {
			switch {
			case cfg.isProactive(*t.TicketTypeID):
				proactiveCount++
			case cfg.isReactive(*t.TicketTypeID):
				reactiveCount++
			}
		}

		// Same-day resolution. Only a strict true counts as closed; the
		// field arrives as true/false/absent from Halo.
		if t.HasBeenClosed != nil && *t.HasBeenClosed {
			closedTickets++
			if t.DateOccurred != "" && t.DateClosed != "" {
				if datePart(t.DateOccurred) == datePart(t.DateClosed) {
					sameDayCount++
				}
			}
		}

		// Critical resolution time. Negative or zero ages show up from
		// upstream sync defects; the ticket still counts toward the
		// denominator, its age just stays out of the sum.
		if t.PriorityID != nil && *t.PriorityID == 1 {
			criticalTickets++
			if t.TicketAge > 0 {
				criticalAgeSum += t.TicketAge
			}
		}

		// Speed to first response. A responsedate in year 0001 is Halo's
		// "never responded" sentinel, not a real timestamp.
		if t.DateOccurred != "" && t.ResponseDate != "" && !strings.HasPrefix(t.ResponseDate, "0001") {
			occ, errOcc := parseTimestamp(t.DateOccurred)
			res, errRes := parseTimestamp(t.ResponseDate)
			if errOcc != nil || errRes != nil {
				log.WithField("ticket_id", t.ID).Warn("skipping ticket: invalid date format")
				continue
			}
			diff := res.Sub(occ).Minutes()
			if diff >= 0 {
				responseMinutes += diff
				validResponses++
			} else {
				log.WithField("ticket_id", t.ID).Warn("skipping ticket: response date is before occurrence date")
			}
		}
	}

	out := Result{TicketCount: len(tickets)}

	totalTyped := proactiveCount + reactiveCount
	if totalTyped > 0 {
		out.ProactivePct = int(float64(proactiveCount) / float64(totalTyped) * 100)
		out.ReactivePct = 100 - out.ProactivePct
	}

	if closedTickets > 0 {
		out.SameDayRate = int(float64(sameDayCount) / float64(closedTickets) * 100)
	}

	if criticalTickets > 0 && criticalAgeSum > 0 {
		out.CriticalResTime = fmt.Sprintf("%.1f hours", criticalAgeSum/float64(criticalTickets))
	} else {
		// Either no critical tickets, or all of them had unusable ages.
		out.CriticalResTime = "< 1 hour"
	}

	if validResponses > 0 {
		avg := responseMinutes / float64(validResponses)
		if avg < 60 {
			out.AvgFirstResponse = fmt.Sprintf("%d mins", int(avg))
		} else {
			out.AvgFirstResponse = fmt.Sprintf("%.1f hours", avg/60)
		}
	} else {
		out.AvgFirstResponse = "N/A"
	}

	return out
}

// datePart returns the calendar-date portion of an ISO-like timestamp.
func datePart(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		return ts[:i]
	}
	return ts
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
