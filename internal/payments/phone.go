package payments

import (
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

var (
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	subscriberPhone = regexp.MustCompile(`^[17][0-9]{8}$`)
)

// NormalizePhone converts local (07XX, 01XX), international (+2547XX) and
// bare (7XX) forms into the 2547XXXXXXXX / 2541XXXXXXXX form the gateway
// expects.
func NormalizePhone(raw string) (string, error) {
	phone := phoneSeparators.Replace(strings.TrimSpace(raw))
	phone = strings.TrimPrefix(phone, "+")

	switch {
	case strings.HasPrefix(phone, "254"):
		phone = phone[3:]
	case strings.HasPrefix(phone, "0"):
		phone = phone[1:]
	}
	if !subscriberPhone.MatchString(phone) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number must be a Kenyan mobile number").
			WithDetails(map[string]any{"phone": raw})
	}
	return "254" + phone, nil
}
