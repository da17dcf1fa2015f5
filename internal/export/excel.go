package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fieldbook/internal/domain"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	statusSuccess = "✅"
	statusPending = "⏳"
	statusError   = "❌"
)

// Exporter renders booking reports as Excel files for managers.
type Exporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		repo:   repo,
		path:   path,
		logger: logger,
	}
}

// ExportSchedule создает Excel файл с расписанием бронирований по полям
func (e *Exporter) ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	fields, err := e.repo.GetActiveFields(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting active fields: %v", err)
	}

	bookings, err := e.repo.GetBookingsByDateRange(ctx, startDate, endDate.AddDate(0, 0, 1))
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateHeaders := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeFieldHeaders(f, sheetName, fields)
	e.writeBookingCells(f, sheetName, fields, bookings, dateHeaders)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 20)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateHeaders) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel schedule created")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateHeaders := make(map[string]int)

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		dateHeaders[currentDate.Format("2006-01-02")] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateHeaders
}

func (e *Exporter) writeFieldHeaders(f *excelize.File, sheetName string, fields []*models.Field) {
	row := 3
	for _, field := range fields {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, field.Name)

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *Exporter) writeBookingCells(
	f *excelize.File, sheetName string,
	fields []*models.Field,
	bookings []*models.Booking,
	dateHeaders map[string]int,
) {
	byCell := groupByFieldAndDay(bookings, dateHeaders)

	row := 3
	for _, field := range fields {
		for dateKey, col := range dateHeaders {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			dayBookings := byCell[cellKey{fieldID: field.ID, date: dateKey}]

			var cellValue string
			if len(dayBookings) > 0 {
				for _, booking := range dayBookings {
					cellValue += fmt.Sprintf("%s %s-%s customer %d\n",
						statusIcon(booking.Status),
						booking.StartAt.UTC().Format("15:04"),
						booking.EndAt.UTC().Format("15:04"),
						booking.CustomerID)
					if booking.Note != "" {
						cellValue += fmt.Sprintf("   💬 %s\n", booking.Note)
					}
				}
			} else {
				cellValue = "Free"
			}

			_ = f.SetCellValue(sheetName, cell, cellValue)

			if styleID, err := e.cellStyle(f, dayBookings); err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
		}
		row++
	}
}

type cellKey struct {
	fieldID int64
	date    string
}

func groupByFieldAndDay(bookings []*models.Booking, dateHeaders map[string]int) map[cellKey][]*models.Booking {
	grouped := make(map[cellKey][]*models.Booking)
	for _, b := range bookings {
		day := b.StartAt.UTC().Format("2006-01-02")
		if _, ok := dateHeaders[day]; !ok {
			continue
		}
		key := cellKey{fieldID: b.FieldID, date: day}
		grouped[key] = append(grouped[key], b)
	}
	return grouped
}

func statusIcon(status models.BookingStatus) string {
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		return statusSuccess
	case models.StatusPending:
		return statusPending
	case models.StatusCancelled, models.StatusRejected:
		return statusError
	default:
		return "❓"
	}
}

// cellStyle picks the fill by the day's booking statuses: white when free,
// yellow when a pending booking waits for a manager, green when confirmed.
func (e *Exporter) cellStyle(f *excelize.File, dayBookings []*models.Booking) (int, error) {
	var active []*models.Booking
	for _, b := range dayBookings {
		if b.Status.Active() {
			active = append(active, b)
		}
	}

	fill := "#FFFFFF"
	if len(active) > 0 {
		fill = "#C6EFCE"
		for _, b := range active {
			if b.Status == models.StatusPending {
				fill = "#FFEB9C"
				break
			}
		}
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

// ExportRevenue создает Excel файл с выручкой по полям за период
func (e *Exporter) ExportRevenue(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	fields, err := e.repo.GetActiveFields(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting active fields: %v", err)
	}

	bookings, err := e.repo.GetBookingsByDateRange(ctx, startDate, endDate.AddDate(0, 0, 1))
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	revenue, hours := revenueByField(bookings)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Revenue"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Field", "Location", "Booked hours", "Revenue"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetName, "A1", "D1", headerStyle)

	var total float64
	for i, field := range fields {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), field.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), field.Location)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), hours[field.ID])
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), revenue[field.ID])
		total += revenue[field.ID]
	}

	totalRow := len(fields) + 2
	_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", totalRow), total)
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("D%d", totalRow), headerStyle)

	_ = f.SetColWidth(sheetName, "A", "B", 25)
	_ = f.SetColWidth(sheetName, "C", "D", 15)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("revenue_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel revenue report created")
	return filePath, nil
}

// revenueByField counts only bookings that earned money: confirmed and
// completed ones. Pending, rejected and cancelled contribute nothing.
func revenueByField(bookings []*models.Booking) (map[int64]float64, map[int64]float64) {
	revenue := make(map[int64]float64)
	hours := make(map[int64]float64)
	for _, b := range bookings {
		if b.Status != models.StatusConfirmed && b.Status != models.StatusCompleted {
			continue
		}
		revenue[b.FieldID] += b.Price
		hours[b.FieldID] += b.Interval().Duration().Hours()
	}
	return revenue, hours
}
