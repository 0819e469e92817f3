package queue

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/travelhub/busticket/internal/ticketpdf"
)

// PDFDelivery renders each booked ticket to Dir and appends one line per
// delivery to LogPath.  It stands in for the e-mail collaborator.
type PDFDelivery struct {
    Dir      string
    LogPath  string
    Location *time.Location
}

// Handle renders ev.  Re-delivery of the same ticket overwrites its file.
func (p PDFDelivery) Handle(_ context.Context, ev TicketBookedEvent) error {
    if err := os.MkdirAll(p.Dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", p.Dir, err)
    }
    doc := ticketpdf.Ticket{
        ID:           ev.TicketID,
        Email:        ev.Email,
        Phone:        ev.Phone,
        FromCity:     ev.FromCity,
        ToCity:       ev.ToCity,
        DepartureAt:  ev.DepartureAt,
        ArrivalAt:    ev.ArrivalAt,
        SeatLabel:    ev.SeatLabel,
        LicensePlate: ev.LicensePlate,
        Price:        ev.Price,
    }
    path := filepath.Join(p.Dir, ticketpdf.Filename(doc))
    f, err := os.Create(path)
    if err != nil {
        return fmt.Errorf("create pdf: %w", err)
    }
    if err := ticketpdf.Render(f, doc, p.Location); err != nil {
        _ = f.Close()
        return fmt.Errorf("render pdf: %w", err)
    }
    if err := f.Close(); err != nil {
        return err
    }

    if p.LogPath == "" {
        return nil
    }
    if err := os.MkdirAll(filepath.Dir(p.LogPath), 0o755); err != nil {
        return err
    }
    lf, err := os.OpenFile(p.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open delivery log: %w", err)
    }
    defer lf.Close()
    line := fmt.Sprintf("[%s] Ticket booked | event_id=%s | ticket_id=%d | trip_id=%d | to=%s | route=\"%s -> %s\" | seat=%s | price=%d | pdf=%s\n",
        ev.BookedAt.UTC().Format(time.RFC3339), ev.EventID, ev.TicketID, ev.TripID, ev.Email,
        ev.FromCity, ev.ToCity, ev.SeatLabel, ev.Price, path)
    _, err = lf.WriteString(line)
    return err
}
