package enums

// PaymentMethod describes how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCredit       PaymentMethod = "credit"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodMobileMoney,
	PaymentMethodCard,
	PaymentMethodBankTransfer,
	PaymentMethodCredit,
}

func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return member(p, validPaymentMethods)
}

// SettlesOnCreate reports whether a sale paid this way is complete at commit.
// Mobile money and store credit wait for a later settlement.
func (p PaymentMethod) SettlesOnCreate() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(value, validPaymentMethods, "payment method")
}
