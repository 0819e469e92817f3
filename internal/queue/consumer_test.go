package queue

import (
    "context"
    "encoding/json"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestHandleDecodesAndDelivers(t *testing.T) {
    dir := t.TempDir()
    logPath := filepath.Join(dir, "deliveries.log")
    delivery := PDFDelivery{Dir: dir, LogPath: logPath, Location: time.UTC}
    c := NewConsumer("amqp://unused", delivery.Handle, nil)

    dep := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
    body, err := json.Marshal(TicketBookedEvent{
        EventID: NewEventID(), TicketID: 9, TripID: 3, Email: "a@b.vn",
        FromCity: "Hanoi", ToCity: "Hue", DepartureAt: dep, ArrivalAt: dep.Add(10 * time.Hour),
        SeatLabel: "B1", Price: 250000, BookedAt: dep,
    })
    require.NoError(t, err)

    require.NoError(t, c.Handle(context.Background(), body))

    pdf, err := os.ReadFile(filepath.Join(dir, "ticket-9.pdf"))
    require.NoError(t, err)
    assert.Equal(t, "%PDF-", string(pdf[:5]))
    line, err := os.ReadFile(logPath)
    require.NoError(t, err)
    assert.Contains(t, string(line), "ticket_id=9")
    assert.Contains(t, string(line), `route="Hanoi -> Hue"`)
}

func TestHandleRejectsBadBodies(t *testing.T) {
    called := false
    c := NewConsumer("amqp://unused", func(context.Context, TicketBookedEvent) error {
        called = true
        return nil
    }, nil)
    assert.Error(t, c.Handle(context.Background(), []byte("{")))
    assert.Error(t, c.Handle(context.Background(), []byte(`{"event_id":"x"}`)))
    assert.False(t, called)
}

func TestNewEventIDUnique(t *testing.T) {
    assert.NotEqual(t, NewEventID(), NewEventID())
    assert.Len(t, NewEventID(), 36)
}
