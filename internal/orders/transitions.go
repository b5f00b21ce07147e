package orders

import (
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

var saleTransitions = map[enums.SaleStatus][]enums.SaleStatus{
	enums.SaleStatusPending:   {enums.SaleStatusCompleted, enums.SaleStatusCancelled},
	enums.SaleStatusCompleted: {enums.SaleStatusRefunded},
}

// purchaseTransitions lists the moves a caller may request directly.
// Received is reached only through receiving.
var purchaseTransitions = map[enums.PurchaseStatus][]enums.PurchaseStatus{
	enums.PurchaseStatusPending: {enums.PurchaseStatusOrdered, enums.PurchaseStatusCancelled},
	enums.PurchaseStatusOrdered: {enums.PurchaseStatusCancelled},
}

func canTransitionSale(from, to enums.SaleStatus) bool {
	for _, allowed := range saleTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func canTransitionPurchase(from, to enums.PurchaseStatus) bool {
	for _, allowed := range purchaseTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// restocksOnTransition reports whether moving a sale to status returns its
// goods to stock.
func restocksOnTransition(to enums.SaleStatus) bool {
	return to == enums.SaleStatusCancelled || to == enums.SaleStatusRefunded
}

func invalidTransition(kind, from, to string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, kind+" cannot move from "+from+" to "+to).
		WithDetails(map[string]any{"from": from, "to": to})
}

func initialSaleStatus(method enums.PaymentMethod) enums.SaleStatus {
	if method.SettlesOnCreate() {
		return enums.SaleStatusCompleted
	}
	return enums.SaleStatusPending
}
