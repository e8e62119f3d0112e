// Package dataset loads tickets from an xlsx export so reports can be
// generated offline, without a live HaloPSA connection.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"qbr-generator-go/internal/logger"
	"qbr-generator-go/internal/types"
)

// column indices detected from the header row, -1 = not present
type columns struct {
	id, ticketType, priority, closed, occurred, response, dateClosed, age, summary int
}

// Load reads the first sheet of a ticket export. Column positions are
// detected from the header row by name; rows that fail to parse are
// skipped quietly, matching how the metric engine treats malformed data.
func Load(path string) ([]types.Ticket, error) {
	log := logger.Component("dataset").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := detectColumns(rows[0])
	log.WithField("rows", len(rows)-1).Info("loading ticket export")

	var out []types.Ticket
	for i, r := range rows {
		if i == 0 {
			continue
		}
		t := types.Ticket{}
		if v := cellAt(r, cols.id); v != "" {
			t.ID, _ = strconv.Atoi(v)
		}
		if v := cellAt(r, cols.ticketType); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				t.TicketTypeID = &n
			}
		}
		if v := cellAt(r, cols.priority); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				t.PriorityID = &n
			}
		}
		// Only a literal true/false cell sets the tri-state flag; anything
		// else stays absent.
		switch strings.ToLower(cellAt(r, cols.closed)) {
		case "true":
			v := true
			t.HasBeenClosed = &v
		case "false":
			v := false
			t.HasBeenClosed = &v
		}
		t.DateOccurred = cellAt(r, cols.occurred)
		t.ResponseDate = cellAt(r, cols.response)
		t.DateClosed = cellAt(r, cols.dateClosed)
		if v := cellAt(r, cols.age); v != "" {
			t.TicketAge, _ = strconv.ParseFloat(v, 64)
		}
		t.Summary = cellAt(r, cols.summary)

		// A row with no id and no dates is a stray footer or blank line.
		if t.ID == 0 && t.DateOccurred == "" && t.DateClosed == "" {
			continue
		}
		out = append(out, t)
	}
	log.WithField("tickets", len(out)).Info("ticket export loaded")
	return out, nil
}

func detectColumns(header []string) columns {
	cols := columns{id: -1, ticketType: -1, priority: -1, closed: -1, occurred: -1, response: -1, dateClosed: -1, age: -1, summary: -1}
	for i, h := range header {
		n := strings.ToLower(strings.TrimSpace(h))
		switch {
		case n == "id" || n == "ticket id" || n == "ticketid":
			if cols.id == -1 {
				cols.id = i
			}
		case strings.Contains(n, "type"):
			if cols.ticketType == -1 {
				cols.ticketType = i
			}
		case strings.Contains(n, "priority"):
			if cols.priority == -1 {
				cols.priority = i
			}
		case strings.Contains(n, "hasbeenclosed") || n == "closed":
			if cols.closed == -1 {
				cols.closed = i
			}
		case strings.Contains(n, "occurred"):
			if cols.occurred == -1 {
				cols.occurred = i
			}
		case strings.Contains(n, "response"):
			if cols.response == -1 {
				cols.response = i
			}
		case strings.Contains(n, "dateclosed") || strings.Contains(n, "date closed"):
			if cols.dateClosed == -1 {
				cols.dateClosed = i
			}
		case strings.Contains(n, "age"):
			if cols.age == -1 {
				cols.age = i
			}
		case strings.Contains(n, "summary") || strings.Contains(n, "subject"):
			if cols.summary == -1 {
				cols.summary = i
			}
		}
	}
	return cols
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
