package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"anna@example.com", true},
		{"a@b", true},
		{"", false},
		{"no-at-sign", false},
		{"@example.com", false},
		{"anna@", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.in))
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"bare ten digits", "0701234567", true},
		{"dashes and spaces", "070-123 45 67", true},
		{"parentheses", "(070) 123-4567", true},
		{"nine digits", "070123456", false},
		{"eleven digits", "07012345678", false},
		{"empty", "", false},
		{"letters only", "call me", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.in))
		})
	}
}

func TestTicketFormValidate(t *testing.T) {
	valid := TicketForm{
		Name:  "Anna Larsson",
		Email: "anna@example.com",
		Phone: "0701234567",
	}
	assert.Empty(t, valid.Validate())
	assert.Equal(t, "ticket", valid.Variant())

	t.Run("all fields wrong reports every field", func(t *testing.T) {
		errs := TicketForm{Name: "", Email: "nope", Phone: "123"}.Validate()
		assert.Contains(t, errs, "name")
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "phone")
	})

	t.Run("single character name is too short", func(t *testing.T) {
		f := valid
		f.Name = "A"
		errs := f.Validate()
		assert.Equal(t, "too short", errs["name"])
	})

	t.Run("postal fields are optional", func(t *testing.T) {
		f := valid
		f.Address, f.PostalCode, f.City = "", "", ""
		assert.Empty(t, f.Validate())
	})
}

func TestCourseAndWaitlistForms(t *testing.T) {
	forms := []Form{
		CourseForm{Name: "Anna Larsson", Email: "anna@example.com", Phone: "0701234567"},
		WaitlistForm{Name: "Anna Larsson", Email: "anna@example.com", Phone: "0701234567"},
	}
	for _, f := range forms {
		t.Run(f.Variant(), func(t *testing.T) {
			assert.Empty(t, f.Validate())
		})
	}

	bad := []Form{
		CourseForm{Name: "Anna", Email: "bad", Phone: "0701234567"},
		WaitlistForm{Name: "Anna", Email: "anna@example.com", Phone: "07012"},
	}
	for _, f := range bad {
		t.Run(f.Variant()+" invalid", func(t *testing.T) {
			assert.NotEmpty(t, f.Validate())
		})
	}
}
