package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"residence-backend/internal/allocation"
)

const (
	OccupancySheet = "Occupancy"
	BedsSheet      = "Beds"
)

var occupancyHeader = []string{"Floor", "Room", "Active Beds", "Occupied", "Available", "Inactive", "Occupancy Rate"}

var bedsHeader = []string{"Floor", "Room", "Bed", "Status", "Guest ID", "Guest Name", "Document Number", "Deactivation Reason", "Deactivated By", "Deactivated At"}

// OccupancyWorkbook renders the snapshot as an xlsx workbook with a per-room summary and a per-bed listing.
func OccupancyWorkbook(snap *allocation.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OccupancySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(BedsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	rateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return nil, fmt.Errorf("failed to create rate style: %w", err)
	}

	if err := writeRow(f, OccupancySheet, 1, toAny(occupancyHeader), headerStyle); err != nil {
		return nil, err
	}
	if err := writeRow(f, BedsSheet, 1, toAny(bedsHeader), headerStyle); err != nil {
		return nil, err
	}

	stats := snap.Occupancy()
	row := 2
	for _, ro := range stats.Rooms {
		if err := writeRow(f, OccupancySheet, row, []any{ro.Floor, ro.RoomNumber, ro.Capacity, ro.Occupied, ro.Available, ro.Inactive, ro.Rate}, 0); err != nil {
			return nil, err
		}
		row++
	}
	if err := writeRow(f, OccupancySheet, row, []any{"", "Total", stats.Capacity, stats.Occupied, stats.Available, stats.Inactive, stats.Rate}, headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(OccupancySheet, "G2", fmt.Sprintf("G%d", row), rateStyle); err != nil {
		return nil, fmt.Errorf("failed to set rate style: %w", err)
	}

	row = 2
	for _, r := range snap.Rooms {
		for _, b := range r.Beds {
			values := []any{r.Floor, r.RoomNumber, b.Number, string(b.Status), "", "", "", "", "", ""}
			if b.Occupant != nil {
				values[4], values[5], values[6] = b.Occupant.GuestID, b.Occupant.FullName, b.Occupant.DocumentNumber
			}
			if b.Deactivation != nil {
				values[7], values[8] = b.Deactivation.Reason, b.Deactivation.Actor
				if !b.Deactivation.At.IsZero() {
					values[9] = b.Deactivation.At.Format("2006-01-02 15:04:05")
				}
			}
			if err := writeRow(f, BedsSheet, row, values, 0); err != nil {
				return nil, err
			}
			row++
		}
	}

	widths := map[string]float64{"A": 8, "B": 12, "C": 12, "D": 12, "E": 12, "F": 22, "G": 18, "H": 24, "I": 16, "J": 20}
	for _, sheet := range []string{OccupancySheet, BedsSheet} {
		for col, w := range widths {
			if err := f.SetColWidth(sheet, col, col, w); err != nil {
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any, style int) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	if style == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, cell, last, style); err != nil {
		return fmt.Errorf("failed to style %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
