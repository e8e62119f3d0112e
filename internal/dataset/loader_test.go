package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := t.TempDir() + "/tickets.xlsx"
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadParsesTicketExport(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"id", "tickettype_id", "priority_id", "hasbeenclosed", "dateoccurred", "responsedate", "dateclosed", "ticketage", "summary"},
		{1, 1, 4, "true", "2025-01-06T09:00:00", "2025-01-06T09:15:00", "2025-01-06T16:00:00", 7.0, "Printer offline"},
		{2, 30, 1, "false", "2025-01-07T08:00:00", "", "", 52.5, "Server patching"},
	})

	tickets, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	first := tickets[0]
	assert.Equal(t, 1, first.ID)
	require.NotNil(t, first.TicketTypeID)
	assert.Equal(t, 1, *first.TicketTypeID)
	require.NotNil(t, first.HasBeenClosed)
	assert.True(t, *first.HasBeenClosed)
	assert.Equal(t, "2025-01-06T09:00:00", first.DateOccurred)
	assert.Equal(t, 7.0, first.TicketAge)
	assert.Equal(t, "Printer offline", first.Summary)

	second := tickets[1]
	require.NotNil(t, second.HasBeenClosed)
	assert.False(t, *second.HasBeenClosed)
	assert.Equal(t, 52.5, second.TicketAge)
}

func TestLoadTriStateClosedFlag(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"id", "hasbeenclosed", "dateoccurred"},
		{1, "yes", "2025-01-06T09:00:00"}, // not a literal bool, stays absent
		{2, "", "2025-01-07T09:00:00"},
		{3, "TRUE", "2025-01-08T09:00:00"},
	})

	tickets, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	assert.Nil(t, tickets[0].HasBeenClosed)
	assert.Nil(t, tickets[1].HasBeenClosed)
	require.NotNil(t, tickets[2].HasBeenClosed)
	assert.True(t, *tickets[2].HasBeenClosed)
}

func TestLoadSkipsBlankAndFooterRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"id", "dateoccurred", "summary"},
		{1, "2025-01-06T09:00:00", "Real ticket"},
		{"", "", ""},
		{"", "", "Report generated by export tool"},
	})

	tickets, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Real ticket", tickets[0].Summary)
}

func TestLoadHeaderAliases(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Ticket ID", "Type", "Priority", "Closed", "Date Occurred", "Response Date", "Date Closed", "Age (hours)", "Subject"},
		{9, 40, 2, "true", "2025-02-01T10:00:00", "2025-02-01T10:05:00", "2025-02-01T11:00:00", 1.0, "Mailbox full"},
	})

	tickets, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	tk := tickets[0]
	assert.Equal(t, 9, tk.ID)
	require.NotNil(t, tk.TicketTypeID)
	assert.Equal(t, 40, *tk.TicketTypeID)
	require.NotNil(t, tk.PriorityID)
	assert.Equal(t, 2, *tk.PriorityID)
	assert.Equal(t, "Mailbox full", tk.Summary)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/nope.xlsx")
	assert.Error(t, err)
}

func TestLoadEmptySheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"id", "dateoccurred"},
	})
	_, err := Load(path)
	assert.Error(t, err)
}
