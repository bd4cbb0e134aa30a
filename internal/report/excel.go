// Package report exports the catalog and the booking ledger to an Excel
// workbook for the operators who reconcile payments offline.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/Mahbub143625/telegram-booking-bot/internal/catalog"
	"github.com/Mahbub143625/telegram-booking-bot/internal/ledger"
	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

// workbook wraps an excelize file with a sheet/row cursor so callers append
// rows without tracking coordinates.
type workbook struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newWorkbook() *workbook {
	return &workbook{file: excelize.NewFile()}
}

func (w *workbook) addSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}
	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *workbook) writeHeader(columns []string) error {
	if err := w.writeRow(toAny(columns)); err != nil {
		return err
	}
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	return nil
}

func (w *workbook) writeRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

func toAny(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// Exporter pulls rows out of the catalog and the ledger and lays them out as
// one workbook with a sheet per table.
type Exporter struct {
	catalog *catalog.Store
	ledger  *ledger.Ledger
	loc     *time.Location
	logger  *zerolog.Logger
}

func NewExporter(cat *catalog.Store, led *ledger.Ledger, loc *time.Location, logger *zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{catalog: cat, ledger: led, loc: loc, logger: logger}
}

const exportBatch = 500

// Export writes the workbook to w. Booking timestamps are rendered in the
// configured display timezone.
func (e *Exporter) Export(ctx context.Context, w io.Writer) error {
	wb := newWorkbook()
	defer wb.file.Close()

	if err := e.writeBookings(ctx, wb); err != nil {
		return err
	}
	if err := e.writeCatalog(ctx, wb); err != nil {
		return err
	}
	if err := wb.file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) writeBookings(ctx context.Context, wb *workbook) error {
	if err := wb.addSheet("Bookings"); err != nil {
		return err
	}
	header := []string{"ID", "Service", "Resource", "User", "Starts", "Ends",
		"Amount", "Method", "Ref", "Status", "Token", "Created"}
	if err := wb.writeHeader(header); err != nil {
		return err
	}

	total := 0
	for offset := 0; ; offset += exportBatch {
		bookings, err := e.ledger.ListAll(ctx, offset, exportBatch)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		for _, b := range bookings {
			if err := wb.writeRow(e.bookingRow(b)); err != nil {
				return err
			}
		}
		total += len(bookings)
		if len(bookings) < exportBatch {
			break
		}
	}
	e.logger.Info().Int("bookings", total).Msg("export: ledger sheet written")
	return nil
}

func (e *Exporter) bookingRow(b models.Booking) []any {
	const layout = "2006-01-02 15:04"
	return []any{
		b.ID, b.ServiceID, b.ResourceID, b.UserName,
		b.StartsAt.In(e.loc).Format(layout),
		b.EndsAt.In(e.loc).Format(layout),
		b.Amount, b.PaymentMethod, b.PaymentRef, b.Status, b.Token,
		b.CreatedAt.In(e.loc).Format(layout),
	}
}

func (e *Exporter) writeCatalog(ctx context.Context, wb *workbook) error {
	services, err := e.catalog.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}

	if err := wb.addSheet("Services"); err != nil {
		return err
	}
	if err := wb.writeHeader([]string{"ID", "Name", "Duration (min)", "Price", "Step (min)", "Active"}); err != nil {
		return err
	}
	for _, s := range services {
		if err := wb.writeRow([]any{s.ID, s.Name, s.DurationMin, s.Price, s.StepMin, s.Active}); err != nil {
			return err
		}
	}

	if err := wb.addSheet("Resources"); err != nil {
		return err
	}
	if err := wb.writeHeader([]string{"ID", "Service", "Name", "Capacity", "Open", "Close", "Active"}); err != nil {
		return err
	}
	for _, s := range services {
		resources, err := e.catalog.ListResources(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("list resources for %s: %w", s.Name, err)
		}
		for _, r := range resources {
			if err := wb.writeRow([]any{r.ID, s.Name, r.Name, r.Capacity, r.OpenTime, r.CloseTime, r.Active}); err != nil {
				return err
			}
		}
	}
	return nil
}
