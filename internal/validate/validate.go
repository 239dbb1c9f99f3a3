// Package validate contains the client-side field validation the
// booking forms run before anything is sent to the data layer.  Each
// request variant (ticket checkout, course checkout, waitlist signup)
// has its own explicit schema; a request that fails validation is
// surfaced with per-field messages and never dispatched.
package validate

import "strings"

// Errors maps field names to human-readable validation messages.  An
// empty map means the form passed.
type Errors map[string]string

// Form is implemented by every request variant.  Validate returns the
// per-field errors; Variant names the schema for logging.
type Form interface {
	Validate() Errors
	Variant() string
}

// Email rejects any value without an @ between two non-empty parts.
func Email(v string) bool {
	at := strings.Index(v, "@")
	return at > 0 && at < len(v)-1
}

// Phone strips every non-digit character and accepts exactly ten
// digits, matching the Swedish mobile number format the forms expect.
func Phone(v string) bool {
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits == 10
}

// required adds an error for every empty value.
func required(errs Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = "required"
	}
}

// contact validates the fields shared by all variants.
func contact(errs Errors, name, email, phone string) {
	required(errs, "name", name)
	if _, ok := errs["name"]; !ok && len(strings.TrimSpace(name)) < 2 {
		errs["name"] = "too short"
	}
	if !Email(email) {
		errs["email"] = "invalid email address"
	}
	if !Phone(phone) {
		errs["phone"] = "phone number must contain exactly 10 digits"
	}
}

// TicketForm is the checkout variant for show tickets.  The postal
// fields are optional; when present they are passed through to the
// purchase record.
type TicketForm struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

func (f TicketForm) Variant() string { return "ticket" }

func (f TicketForm) Validate() Errors {
	errs := Errors{}
	contact(errs, f.Name, f.Email, f.Phone)
	return errs
}

// CourseForm is the checkout variant for course bookings.
type CourseForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (f CourseForm) Variant() string { return "course" }

func (f CourseForm) Validate() Errors {
	errs := Errors{}
	contact(errs, f.Name, f.Email, f.Phone)
	return errs
}

// WaitlistForm is the signup variant for sold-out events.
type WaitlistForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (f WaitlistForm) Variant() string { return "waitlist" }

func (f WaitlistForm) Validate() Errors {
	errs := Errors{}
	contact(errs, f.Name, f.Email, f.Phone)
	return errs
}
