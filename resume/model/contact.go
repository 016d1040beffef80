package model

import (
	"regexp"
	"strings"
)

// Contact holds the pieces pulled out of a free-form contact line.
type Contact struct {
	Phone    string
	Email    string
	Location string
}

var (
	phonePattern    = regexp.MustCompile(`[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,4}[)]?[-\s\.]?[0-9]{1,9}`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	locationPattern = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,?\s*[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	separatorTrim   = " \t|,;·•-"
)

// ParseContact extracts phone, email and location from contact text.
// When no capitalised place name is found the location falls back to
// whatever text remains after removing the phone and email.
func ParseContact(info string) Contact {
	info = strings.TrimSpace(info)
	c := Contact{
		Email: emailPattern.FindString(info),
	}
	// Strip the email first so digits inside it are not read as a phone number.
	rest := info
	if c.Email != "" {
		rest = strings.Replace(rest, c.Email, " ", 1)
	}
	c.Phone = strings.TrimSpace(phonePattern.FindString(rest))
	if c.Phone != "" {
		rest = strings.Replace(rest, c.Phone, " ", 1)
	}

	if loc := locationPattern.FindString(rest); loc != "" {
		c.Location = strings.Trim(loc, separatorTrim)
	} else {
		c.Location = strings.Join(strings.FieldsFunc(rest, func(r rune) bool {
			return strings.ContainsRune("|;·•", r)
		}), " ")
		c.Location = strings.Trim(strings.Join(strings.Fields(c.Location), " "), separatorTrim)
	}
	return c
}
