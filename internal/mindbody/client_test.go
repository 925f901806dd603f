package mindbody

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

var london = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.UTC
	}
	return loc
}()

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{BaseURL: ts.URL, APIKey: "key-1", SiteID: "-99", Location: london}, logging.Default(), WithHTTPClient(ts.Client()))
}

type recordingObserver struct {
	calls []string
}

func (r *recordingObserver) ObserveProviderRequest(endpoint string, status int, _ float64) {
	r.calls = append(r.calls, endpoint+":"+http.StatusText(status))
}

func TestClient_NotConfigured(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, APIKey: "key"}, nil)
	if c.Configured() {
		t.Fatal("client without site id should not be configured")
	}
	_, err := c.FetchServices(context.Background())
	if !errors.Is(err, booking.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if called {
		t.Fatal("unconfigured client must not hit the network")
	}
}

func TestClient_Headers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Api-Key"); got != "key-1" {
			t.Fatalf("Api-Key = %q", got)
		}
		if got := r.Header.Get("SiteId"); got != "-99" {
			t.Fatalf("SiteId = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("Content-Type = %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Fatal("missing User-Agent")
		}
		_, _ = w.Write([]byte(`{"Locations":[{"Id":1,"Name":"Primrose Hill"}]}`))
	})
	locs, err := c.FetchLocations(context.Background())
	if err != nil {
		t.Fatalf("FetchLocations() error = %v", err)
	}
	if len(locs) != 1 || locs[0].ID != "1" || locs[0].Name != "Primrose Hill" {
		t.Fatalf("locations = %+v", locs)
	}
}

func TestClient_FetchServicesMapsFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Services":[
			{"Id":"101","Name":" Deep Tissue - Jane Doe - 60min ","Price":85,"ServiceCategory":{"Name":"Massage"},"AllowOnlineBooking":true},
			{"Id":102,"Name":"Reiki","OnlinePrice":40,"Program":"Energy Healing","Duration":"45","OnlineBooking":false}
		]}`))
	})
	services, err := c.FetchServices(context.Background())
	if err != nil {
		t.Fatalf("FetchServices() error = %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("len(services) = %d, want 2", len(services))
	}
	first := services[0]
	if first.ID != "101" || first.Name != "Deep Tissue - Jane Doe - 60min" || first.CategoryName != "Massage" {
		t.Fatalf("first = %+v", first)
	}
	if first.Price == nil || *first.Price != 85 {
		t.Fatalf("first price = %v", first.Price)
	}
	second := services[1]
	if second.ID != "102" || second.Program != "Energy Healing" || second.Duration != 45 {
		t.Fatalf("second = %+v", second)
	}
	if second.AllowOnlineBooking == nil || *second.AllowOnlineBooking {
		t.Fatal("OnlineBooking=false should map to AllowOnlineBooking=false")
	}
}

func TestClient_FetchStaffFallsBackToStaffKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Staff":[{"Id":7,"FirstName":"Jane","LastName":"Doe","ImageUrl":"https://img/jane.jpg"}]}`))
	})
	staff, err := c.FetchStaff(context.Background())
	if err != nil {
		t.Fatalf("FetchStaff() error = %v", err)
	}
	if len(staff) != 1 || staff[0].FullName() != "Jane Doe" || staff[0].ImageURL == "" {
		t.Fatalf("staff = %+v", staff)
	}
}

func TestClient_FetchBookableSlotsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appointment/bookableitems" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q["SessionTypeIds"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
			t.Fatalf("SessionTypeIds = %v", got)
		}
		if got := q["StaffIds"]; len(got) != 1 || got[0] != "7" {
			t.Fatalf("StaffIds = %v", got)
		}
		if q.Get("StartDate") != "2024-06-01T00:00:00" || q.Get("EndDate") != "2024-06-03T23:59:59" {
			t.Fatalf("dates = %s..%s", q.Get("StartDate"), q.Get("EndDate"))
		}
		_, _ = w.Write([]byte(`{"BookableItems":[
			{"Id":"b1","Staff":{"Id":7,"FirstName":"Jane","LastName":"Doe"},"SessionType":{"Id":1,"Name":"Deep Tissue","Price":85},"Location":{"Id":1,"Name":"Primrose Hill"},"StartDateTime":"2024-06-01T10:00:00","EndDateTime":"2024-06-01T11:00:00"},
			{"Staff":{"Id":7},"SessionType":{"Id":2},"StartDateTime":"2024-06-02T09:00:00","EndDateTime":"2024-06-02T09:30:00"},
			{"Id":"bad","StartDateTime":"2024-06-02T09:00:00","EndDateTime":"2024-06-02T09:00:00"}
		]}`))
	})
	slots, err := c.FetchBookableSlots(context.Background(), booking.SlotQuery{
		SessionTypeIDs: []string{"1", "2"},
		StaffIDs:       []string{"7"},
		Start:          time.Date(2024, 6, 1, 0, 0, 0, 0, london),
		End:            time.Date(2024, 6, 3, 23, 59, 59, 0, london),
	})
	if err != nil {
		t.Fatalf("FetchBookableSlots() error = %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if slots[0].BookableItemID != "b1" || slots[0].StaffName != "Jane Doe" || slots[0].LocationName != "Primrose Hill" {
		t.Fatalf("slot[0] = %+v", slots[0])
	}
	if slots[0].Price == nil || *slots[0].Price != 85 {
		t.Fatalf("slot[0] price = %v", slots[0].Price)
	}
	if slots[0].DurationMinutes() != 60 {
		t.Fatalf("duration = %d", slots[0].DurationMinutes())
	}
	want := SyntheticItemID("7", "2", time.Date(2024, 6, 2, 9, 0, 0, 0, london))
	if slots[1].BookableItemID != want {
		t.Fatalf("synthetic id = %s, want %s", slots[1].BookableItemID, want)
	}
}

func TestClient_ErrorBodyParsing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{"nested", http.StatusBadRequest, `{"Error":{"Message":"Invalid SiteId","Code":"InvalidSiteId"}}`, "Invalid SiteId", "InvalidSiteId"},
		{"flat", http.StatusUnauthorized, `{"Message":"Bad key"}`, "Bad key", ""},
		{"html", http.StatusBadGateway, `<html>oops</html>`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			c := NewClient(Config{BaseURL: ts.URL, APIKey: "k", SiteID: "s"}, nil, WithMetrics(obs))

			_, err := c.FetchStaff(context.Background())
			var pe *booking.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want ProviderError", err)
			}
			if pe.StatusCode != tt.status || pe.Message != tt.message || pe.Code != tt.code {
				t.Fatalf("provider error = %+v", pe)
			}
			if len(obs.calls) != 1 || obs.calls[0] != "staff:"+http.StatusText(tt.status) {
				t.Fatalf("observed = %v", obs.calls)
			}
		})
	}
}

func TestClient_CreateBooking(t *testing.T) {
	var got addAppointmentRequest
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/appointment/addappointment" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"Appointment":{"Id":555,"Status":"Booked","StaffId":7,"SessionTypeId":1,"StartDateTime":"2024-06-01T10:00:00"}}`))
	})
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, london)
	conf, err := c.CreateBooking(context.Background(), booking.BookingRequest{
		ClientID: "c-1",
		Line: booking.CartBookingLine{
			BookableItemID: "b1",
			SessionTypeID:  "1",
			StaffID:        "7",
			StartDateTime:  start,
			EndDateTime:    start.Add(time.Hour),
		},
		SendEmail: true,
	})
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got.ClientID != "c-1" || got.StaffID != "7" || got.StartDateTime != "2024-06-01T10:00:00" || got.EndDateTime != "2024-06-01T11:00:00" || !got.SendEmail {
		t.Fatalf("request body = %+v", got)
	}
	if conf.AppointmentID != "555" || conf.Status != "Booked" || !conf.StartDateTime.Equal(start) {
		t.Fatalf("confirmation = %+v", conf)
	}
}

func TestClient_TransportErrorIsTemporary(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := NewClient(Config{BaseURL: url, APIKey: "k", SiteID: "s"}, nil)
	_, err := c.FetchSessionTypes(context.Background())
	if !booking.IsTemporary(err) {
		t.Fatalf("err = %v, want temporary provider error", err)
	}
}

func TestParseTime(t *testing.T) {
	c := NewClient(Config{Location: london}, nil)
	for _, in := range []string{"2024-06-01T10:00:00", "2024-06-01T10:00", "2024-06-01T09:00:00Z"} {
		got, err := c.parseTime(in)
		if err != nil {
			t.Fatalf("parseTime(%q) error = %v", in, err)
		}
		if !got.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, london)) {
			t.Fatalf("parseTime(%q) = %s", in, got)
		}
	}
	if _, err := c.parseTime("soon"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
