package enums

import "testing"

func TestPaymentMethodSettlesOnCreate(t *testing.T) {
	t.Parallel()

	settled := map[PaymentMethod]bool{
		PaymentMethodCash:         true,
		PaymentMethodCard:         true,
		PaymentMethodBankTransfer: true,
		PaymentMethodMobileMoney:  false,
		PaymentMethodCredit:       false,
	}
	for method, want := range settled {
		if got := method.SettlesOnCreate(); got != want {
			t.Fatalf("%s.SettlesOnCreate() = %v, want %v", method, got, want)
		}
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	if _, err := ParsePaymentMethod("cheque"); err == nil {
		t.Fatal("expected unknown payment method to fail")
	}
	if _, err := ParseSaleStatus("ordered"); err == nil {
		t.Fatal("ordered is not a sale status")
	}
	if _, err := ParsePurchaseStatus("refunded"); err == nil {
		t.Fatal("refunded is not a purchase status")
	}
	if s, err := ParsePurchaseStatus("ordered"); err != nil || s != PurchaseStatusOrdered {
		t.Fatalf("unexpected parse result %q, %v", s, err)
	}
}

func TestTerminalStatuses(t *testing.T) {
	t.Parallel()

	if SaleStatusCompleted.IsTerminal() {
		t.Fatal("completed sales can still be refunded")
	}
	if !SaleStatusRefunded.IsTerminal() || !PurchaseStatusReceived.IsTerminal() {
		t.Fatal("refunded sales and received purchases are terminal")
	}
	if PaymentAttemptPending.IsTerminal() || !PaymentAttemptCancelled.IsTerminal() {
		t.Fatal("unexpected payment attempt terminal classification")
	}
}
