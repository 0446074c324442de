package orders

import (
	"regexp"
	"strings"

	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

var (
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe      = regexp.MustCompile(`^\+?\d{10,15}$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// validateCustomerDetails checks the fields in a fixed order and reports
// the first invalid one, so the client can focus the right form field.
func validateCustomerDetails(details types.CustomerDetails) error {
	checks := []struct {
		field string
		ok    bool
	}{
		{"firstName", strings.TrimSpace(details.FirstName) != ""},
		{"lastName", strings.TrimSpace(details.LastName) != ""},
		{"email", emailRe.MatchString(strings.TrimSpace(details.Email))},
		{"phone", phoneRe.MatchString(whitespaceRe.ReplaceAllString(details.Phone, ""))},
		{"address", strings.TrimSpace(details.Address) != ""},
		{"city", strings.TrimSpace(details.City) != ""},
		{"zipCode", strings.TrimSpace(details.ZipCode) != ""},
	}

	for _, check := range checks {
		if !check.ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid customer field: "+check.field).
				WithDetails(map[string]any{"field": check.field})
		}
	}
	return nil
}
