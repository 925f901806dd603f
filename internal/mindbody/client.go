// Package mindbody is the Provider Client for the Mindbody Public API v6.
// Each call is a single attempt; wrap a Client in Retrying for GET retries.
package mindbody

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.mindbodyonline.com/public/v6"
	defaultTimeout = 30 * time.Second
	defaultLimit   = 500

	wireTimeLayout = "2006-01-02T15:04:05"
)

// Config carries site credentials and transport settings.
type Config struct {
	BaseURL    string
	APIKey     string
	SiteID     string
	SourceName string
	Timeout    time.Duration
	// Location interprets the zone-less datetimes Mindbody returns.
	Location *time.Location
}

type requestObserver interface {
	ObserveProviderRequest(endpoint string, status int, seconds float64)
}

// Client talks to a single Mindbody site.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	siteID     string
	userAgent  string
	loc        *time.Location
	logger     *logging.Logger
	metrics    requestObserver
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records per-endpoint status and latency.
func WithMetrics(m requestObserver) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(cfg Config, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	ua := "homewellness-booking"
	if cfg.SourceName != "" {
		ua += "; " + cfg.SourceName
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		siteID:    strings.TrimSpace(cfg.SiteID),
		userAgent: ua,
		loc:       loc,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the API key and site id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.siteID != ""
}

// FetchServices lists sellable services from /sale/services.
func (c *Client) FetchServices(ctx context.Context) ([]booking.RawService, error) {
	q := url.Values{}
	q.Set("Limit", "1000")
	var resp servicesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/sale/services", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]booking.RawService, 0, len(resp.Services))
	for _, s := range resp.Services {
		raw := booking.RawService{
			ID:                 string(s.ID),
			Name:               strings.TrimSpace(s.Name),
			Program:            string(s.Program),
			Duration:           int(s.Duration),
			Length:             int(s.Length),
			SessionLength:      int(s.SessionLength),
			Price:              s.Price,
			OnlinePrice:        s.OnlinePrice,
			AllowOnlineBooking: s.AllowOnlineBooking,
		}
		if raw.AllowOnlineBooking == nil {
			raw.AllowOnlineBooking = s.OnlineBooking
		}
		if s.ServiceCategory != nil {
			raw.CategoryName = s.ServiceCategory.Name
		}
		out = append(out, raw)
	}
	return out, nil
}

// FetchStaff lists staff members. Older API versions key the list as Staff.
func (c *Client) FetchStaff(ctx context.Context) ([]booking.Staff, error) {
	q := url.Values{}
	q.Set("Limit", strconv.Itoa(defaultLimit))
	var resp staffResponse
	if err := c.doJSON(ctx, http.MethodGet, "/staff/staff", q, nil, &resp); err != nil {
		return nil, err
	}
	list := resp.StaffMembers
	if len(list) == 0 {
		list = resp.Staff
	}
	out := make([]booking.Staff, 0, len(list))
	for _, s := range list {
		out = append(out, toStaff(s))
	}
	return out, nil
}

// FetchStaffAppointments lists booked appointments between two dates.
func (c *Client) FetchStaffAppointments(ctx context.Context, start, end time.Time) ([]booking.StaffAppointment, error) {
	q := url.Values{}
	q.Set("StartDate", start.In(c.loc).Format("2006-01-02"))
	q.Set("EndDate", end.In(c.loc).Format("2006-01-02"))
	q.Set("Limit", "1000")
	var resp staffAppointmentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/appointment/staffappointments", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]booking.StaffAppointment, 0, len(resp.Appointments))
	for _, a := range resp.Appointments {
		appt := booking.StaffAppointment{StaffID: string(a.StaffID)}
		if a.Staff != nil {
			if a.Staff.ID != "" {
				appt.StaffID = string(a.Staff.ID)
			}
			appt.StaffName = toStaff(*a.Staff).FullName()
		}
		startAt, err := c.parseTime(a.StartDateTime)
		if appt.StaffID == "" || err != nil {
			continue
		}
		appt.StartDateTime = startAt
		out = append(out, appt)
	}
	return out, nil
}

// FetchSessionTypes lists appointment session types.
func (c *Client) FetchSessionTypes(ctx context.Context) ([]booking.SessionType, error) {
	q := url.Values{}
	q.Set("Limit", strconv.Itoa(defaultLimit))
	var resp sessionTypesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/appointment/sessiontypes", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]booking.SessionType, 0, len(resp.SessionTypes))
	for _, st := range resp.SessionTypes {
		out = append(out, toSessionType(st))
	}
	return out, nil
}

// FetchLocations lists site locations.
func (c *Client) FetchLocations(ctx context.Context) ([]booking.Location, error) {
	var resp locationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/site/locations", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]booking.Location, 0, len(resp.Locations))
	for _, l := range resp.Locations {
		out = append(out, booking.Location{ID: string(l.ID), Name: l.Name})
	}
	return out, nil
}

// FetchBookableSlots queries /appointment/bookableitems. Items without a
// usable time window are dropped.
func (c *Client) FetchBookableSlots(ctx context.Context, sq booking.SlotQuery) ([]booking.BookableSlot, error) {
	q := url.Values{}
	for _, id := range sq.SessionTypeIDs {
		q.Add("SessionTypeIds", id)
	}
	for _, id := range sq.StaffIDs {
		q.Add("StaffIds", id)
	}
	for _, id := range sq.LocationIDs {
		q.Add("LocationIds", id)
	}
	if !sq.Start.IsZero() {
		q.Set("StartDate", sq.Start.In(c.loc).Format(wireTimeLayout))
	}
	if !sq.End.IsZero() {
		q.Set("EndDate", sq.End.In(c.loc).Format(wireTimeLayout))
	}
	limit := sq.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	q.Set("Limit", strconv.Itoa(limit))

	var resp bookableItemsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/appointment/bookableitems", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]booking.BookableSlot, 0, len(resp.BookableItems))
	for _, item := range resp.BookableItems {
		slot, ok := c.toSlot(item)
		if !ok {
			c.logger.Debug("mindbody: dropping bookable item without time window", "start", item.StartDateTime, "end", item.EndDateTime)
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// CreateBooking posts /appointment/addappointment exactly once.
func (c *Client) CreateBooking(ctx context.Context, req booking.BookingRequest) (*booking.BookingConfirmation, error) {
	line := req.Line
	body := addAppointmentRequest{
		ClientID:      req.ClientID,
		SessionTypeID: line.SessionTypeID,
		StaffID:       line.StaffID,
		LocationID:    line.LocationID,
		StartDateTime: line.StartDateTime.In(c.loc).Format(wireTimeLayout),
		Notes:         req.Notes,
		Test:          req.Test,
		SendEmail:     req.SendEmail,
	}
	if !line.EndDateTime.IsZero() {
		body.EndDateTime = line.EndDateTime.In(c.loc).Format(wireTimeLayout)
	}
	var resp addAppointmentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/appointment/addappointment", nil, body, &resp); err != nil {
		return nil, err
	}
	conf := &booking.BookingConfirmation{
		AppointmentID: string(resp.Appointment.ID),
		Status:        resp.Appointment.Status,
		StaffID:       string(resp.Appointment.StaffID),
		SessionTypeID: string(resp.Appointment.SessionTypeID),
		StartDateTime: line.StartDateTime,
	}
	if t, err := c.parseTime(resp.Appointment.StartDateTime); err == nil {
		conf.StartDateTime = t
	}
	return conf, nil
}

func (c *Client) toSlot(item bookableItemDTO) (booking.BookableSlot, bool) {
	start, err := c.parseTime(item.StartDateTime)
	if err != nil {
		return booking.BookableSlot{}, false
	}
	end, err := c.parseTime(item.EndDateTime)
	if err != nil || !start.Before(end) {
		return booking.BookableSlot{}, false
	}
	slot := booking.BookableSlot{
		BookableItemID: string(item.ID),
		StartDateTime:  start,
		EndDateTime:    end,
	}
	if item.Staff != nil {
		slot.StaffID = string(item.Staff.ID)
		slot.StaffName = toStaff(*item.Staff).FullName()
	}
	if item.SessionType != nil {
		slot.SessionTypeID = string(item.SessionType.ID)
		slot.SessionTypeName = item.SessionType.Name
		slot.Price = item.SessionType.Price
		if slot.Price == nil {
			slot.Price = item.SessionType.OnlinePrice
		}
	}
	if item.Location != nil {
		slot.LocationID = string(item.Location.ID)
		slot.LocationName = item.Location.Name
	}
	if slot.BookableItemID == "" {
		slot.BookableItemID = SyntheticItemID(slot.StaffID, slot.SessionTypeID, start)
	}
	return slot, true
}

// SyntheticItemID derives a stable slot id for items Mindbody returns
// without one, so a re-query of the same slot yields the same id.
func SyntheticItemID(staffID, sessionTypeID string, start time.Time) string {
	return fmt.Sprintf("%s-%s-%s", staffID, sessionTypeID, start.UTC().Format("20060102T1504"))
}

func toStaff(s staffDTO) booking.Staff {
	st := booking.Staff{
		ID:        string(s.ID),
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		ImageURL:  s.ImageURL,
	}
	if st.FirstName == "" && st.LastName == "" && s.DisplayName != "" {
		st.FirstName = strings.TrimSpace(s.DisplayName)
	}
	return st
}

func toSessionType(st sessionTypeDTO) booking.SessionType {
	out := booking.SessionType{
		ID:                string(st.ID),
		Name:              st.Name,
		DefaultTimeLength: int(st.DefaultTimeLength),
		Price:             st.Price,
		OnlineBookable:    st.OnlineBooking == nil || *st.OnlineBooking,
	}
	if out.Price == nil {
		out.Price = st.OnlinePrice
	}
	return out
}

// parseTime accepts RFC3339 or the zone-less site-local layouts.
func (c *Client) parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty datetime")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{wireTimeLayout, "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", value)
}

func endpointName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	op := "mindbody." + endpointName(path)
	if !c.Configured() {
		return fmt.Errorf("%s: %w", op, booking.ErrNotConfigured)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		// url.Values encodes slices as repeated keys: SessionTypeIds=1&SessionTypeIds=2.
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("SiteId", c.siteID)
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpointName(path), 0, started)
		return &booking.ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.observe(endpointName(path), resp.StatusCode, started)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &booking.ProviderError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("mindbody API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		pe := &booking.ProviderError{Op: op, StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil {
			if eb.Error != nil {
				pe.Message = eb.Error.Message
				pe.Code = eb.Error.Code
			} else {
				pe.Message = eb.Message
			}
		}
		return pe
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &booking.ProviderError{Op: op, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, started time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveProviderRequest(endpoint, status, time.Since(started).Seconds())
}
