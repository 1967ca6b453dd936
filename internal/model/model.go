package model

import (
	"strings"
	"time"
)

// DefaultImage is the image reference shown for a contact without an uploaded image.
const DefaultImage = "/img/DefaultContactImage.png"

// Contact is the data structure for a person that we know. Every contact belongs to exactly one
// owner. ImageBytes and ImageType are either both set or both nil.
type Contact struct {
	Id         int64      `db:"id"`
	OwnerId    string     `db:"owner_id"`
	FirstName  string     `db:"firstname"`
	LastName   string     `db:"lastname"`
	Birthday   *time.Time `db:"birthday"`
	Address1   *string    `db:"address1"`
	Address2   *string    `db:"address2"`
	City       *string    `db:"city"`
	State      *string    `db:"state"`
	ZipCode    *string    `db:"zipcode"`
	Email      *string    `db:"email"`
	Phone      *string    `db:"phone"`
	CreatedAt  time.Time  `db:"created_at"`
	ImageBytes []byte     `db:"image_bytes"`
	ImageType  *string    `db:"image_type"`
	Version    int64      `db:"version"`

	// Categories holds the ids of the categories the contact is a member of. It is not a
	// column; it is filled from the membership table.
	Categories []int64 `db:"-"`
}

// FullName is the first name and the last name separated by a space.
func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// ContactFields are the user-editable values of a contact.
type ContactFields struct {
	FirstName string     `validate:"required,min=2,max=50"`
	LastName  string     `validate:"required,min=2,max=50"`
	Birthday  *time.Time `validate:"omitempty"`
	Address1  *string    `validate:"omitempty,max=100"`
	Address2  *string    `validate:"omitempty,max=100"`
	City      *string    `validate:"omitempty,max=50"`
	State     *string    `validate:"omitempty,us_state"`
	ZipCode   *string    `validate:"omitempty,max=10"`
	Email     *string    `validate:"omitempty,email"`
	Phone     *string    `validate:"omitempty,phone_number"`
}

// Trim removes surrounding white space from all text values. Optional values that end up empty
// are set to nil.
func (f *ContactFields) Trim() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	for _, p := range []**string{&f.Address1, &f.Address2, &f.City, &f.State, &f.ZipCode, &f.Email, &f.Phone} {
		*p = trimOptional(*p)
	}
	if f.State != nil {
		upper := strings.ToUpper(*f.State)
		f.State = &upper
	}
}

// Category is a named group of contacts. Contacts holds the ids of the member contacts and is
// not a column.
type Category struct {
	Id       int64   `db:"id"`
	OwnerId  string  `db:"owner_id"`
	Name     string  `db:"name"`
	Version  int64   `db:"version"`
	Contacts []int64 `db:"-"`
}

// CategoryFields are the user-editable values of a category.
type CategoryFields struct {
	Name string `validate:"required,max=100"`
}

// Trim removes surrounding white space from the name.
func (f *CategoryFields) Trim() {
	f.Name = strings.TrimSpace(f.Name)
}

// EmailMessage is the content of the compose form. It is never persisted. EmailAddress is a
// single address or several addresses joined with ';'. FirstName, LastName and GroupName only
// describe who the message is for.
type EmailMessage struct {
	EmailAddress string
	EmailSubject string
	EmailBody    string
	FirstName    string
	LastName     string
	GroupName    string
}

// EmailContent is what the user writes into the compose form.
type EmailContent struct {
	Subject string `validate:"required,max=200"`
	Body    string `validate:"required"`
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
