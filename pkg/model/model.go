// Package model contains the JSON documents of the contacts REST API. Clients of the service can
// import it.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date. It is written as "2006-01-02" and read from that layout or from an
// RFC 3339 timestamp, in which case the date part is taken as it appears in the text.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}

// ContactRequest creates or updates a contact. Version is required for updates. A missing or
// null CategoryIds leaves the memberships of an existing contact unchanged, an empty list removes
// them all.
type ContactRequest struct {
	FirstName   string  `json:"firstname"`
	LastName    string  `json:"lastname"`
	Birthday    *Date   `json:"birthday,omitempty"`
	Address1    *string `json:"address1,omitempty"`
	Address2    *string `json:"address2,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	ZipCode     *string `json:"zipcode,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Version     int64   `json:"version,omitempty"`
	CategoryIds []int64 `json:"categoryIds"`
}

// ContactResponse is a stored contact. Image is either a data URI or the path of the default
// image.
type ContactResponse struct {
	Id          int64     `json:"id"`
	FirstName   string    `json:"firstname"`
	LastName    string    `json:"lastname"`
	FullName    string    `json:"fullname"`
	Birthday    *Date     `json:"birthday,omitempty"`
	Address1    *string   `json:"address1,omitempty"`
	Address2    *string   `json:"address2,omitempty"`
	City        *string   `json:"city,omitempty"`
	State       *string   `json:"state,omitempty"`
	ZipCode     *string   `json:"zipcode,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Image       string    `json:"image"`
	Version     int64     `json:"version"`
	CategoryIds []int64   `json:"categoryIds,omitempty"`
}

// CategoryRequest creates or updates a category. Version is required for updates.
type CategoryRequest struct {
	Name    string `json:"name"`
	Version int64  `json:"version,omitempty"`
}

// CategoryResponse is a stored category. ContactIds is only filled for a single category.
type CategoryResponse struct {
	Id         int64   `json:"id"`
	Name       string  `json:"name"`
	Version    int64   `json:"version"`
	ContactIds []int64 `json:"contactIds,omitempty"`
}

// Option is one entry of a selection list.
type Option struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

// EmailRequest is a message to a contact or to all members of a category.
type EmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailForm pre-populates the compose form. EmailAddress holds several addresses joined with
// ';' for a group message.
type EmailForm struct {
	EmailAddress string `json:"emailAddress"`
	EmailSubject string `json:"emailSubject"`
	EmailBody    string `json:"emailBody"`
	FirstName    string `json:"firstname,omitempty"`
	LastName     string `json:"lastname,omitempty"`
	GroupName    string `json:"groupName,omitempty"`
}

// SendResult reports how many messages were handed to the mail transport.
type SendResult struct {
	Recipients int `json:"recipients"`
}

// ErrorResponse is the body of every failed request. Fields lists the invalid request fields.
type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
