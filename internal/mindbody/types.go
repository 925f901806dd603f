package mindbody

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexString accepts a JSON string or number. Mindbody returns numeric ids
// on some endpoints and string ids on others.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string; anything else is 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(int(v))
	return nil
}

type namedRef struct {
	ID   flexString `json:"Id"`
	Name string     `json:"Name"`
}

type serviceDTO struct {
	ID                 flexString `json:"Id"`
	Name               string     `json:"Name"`
	Price              *float64   `json:"Price"`
	OnlinePrice        *float64   `json:"OnlinePrice"`
	Program            flexString `json:"Program"`
	ServiceCategory    *namedRef  `json:"ServiceCategory"`
	Duration           flexInt    `json:"Duration"`
	Length             flexInt    `json:"Length"`
	SessionLength      flexInt    `json:"SessionLength"`
	AllowOnlineBooking *bool      `json:"AllowOnlineBooking"`
	OnlineBooking      *bool      `json:"OnlineBooking"`
}

type servicesResponse struct {
	Services []serviceDTO `json:"Services"`
}

type staffDTO struct {
	ID          flexString `json:"Id"`
	FirstName   string     `json:"FirstName"`
	LastName    string     `json:"LastName"`
	DisplayName string     `json:"DisplayName"`
	ImageURL    string     `json:"ImageUrl"`
}

type staffResponse struct {
	StaffMembers []staffDTO `json:"StaffMembers"`
	Staff        []staffDTO `json:"Staff"`
}

type appointmentDTO struct {
	ID            flexString `json:"Id"`
	StaffID       flexString `json:"StaffId"`
	Staff         *staffDTO  `json:"Staff"`
	SessionTypeID flexString `json:"SessionTypeId"`
	LocationID    flexString `json:"LocationId"`
	Status        string     `json:"Status"`
	StartDateTime string     `json:"StartDateTime"`
	EndDateTime   string     `json:"EndDateTime"`
}

type staffAppointmentsResponse struct {
	Appointments []appointmentDTO `json:"Appointments"`
}

type sessionTypeDTO struct {
	ID                flexString `json:"Id"`
	Name              string     `json:"Name"`
	DefaultTimeLength flexInt    `json:"DefaultTimeLength"`
	Price             *float64   `json:"Price"`
	OnlinePrice       *float64   `json:"OnlinePrice"`
	AvailableForAddOn bool       `json:"AvailableForAddOn"`
	Type              string     `json:"Type"`
	OnlineBooking     *bool      `json:"OnlineBooking"`
}

type sessionTypesResponse struct {
	SessionTypes []sessionTypeDTO `json:"SessionTypes"`
}

type locationsResponse struct {
	Locations []namedRef `json:"Locations"`
}

type bookableItemDTO struct {
	ID            flexString      `json:"Id"`
	Staff         *staffDTO       `json:"Staff"`
	SessionType   *sessionTypeDTO `json:"SessionType"`
	Location      *namedRef       `json:"Location"`
	StartDateTime string          `json:"StartDateTime"`
	EndDateTime   string          `json:"EndDateTime"`
}

type bookableItemsResponse struct {
	BookableItems []bookableItemDTO `json:"BookableItems"`
}

type addAppointmentRequest struct {
	ClientID      string `json:"ClientId"`
	SessionTypeID string `json:"SessionTypeId"`
	StaffID       string `json:"StaffId"`
	LocationID    string `json:"LocationId,omitempty"`
	StartDateTime string `json:"StartDateTime"`
	EndDateTime   string `json:"EndDateTime,omitempty"`
	Notes         string `json:"Notes,omitempty"`
	Test          bool   `json:"Test"`
	SendEmail     bool   `json:"SendEmail"`
}

type addAppointmentResponse struct {
	Appointment appointmentDTO `json:"Appointment"`
}

type errorBody struct {
	Error *struct {
		Message string `json:"Message"`
		Code    string `json:"Code"`
	} `json:"Error"`
	Message string `json:"Message"`
}
