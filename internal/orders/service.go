package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

// Service is the transaction coordinator for sales and purchases.
type Service interface {
	CreateSale(ctx context.Context, input SaleInput) (*models.Sale, error)
	CreatePurchase(ctx context.Context, input PurchaseInput) (*models.Purchase, error)
	ReceivePurchase(ctx context.Context, input ReceiveInput) (*models.Purchase, error)
	UpdateSaleStatus(ctx context.Context, input SaleStatusInput) (*models.Sale, error)
	UpdatePurchaseStatus(ctx context.Context, input PurchaseStatusInput) (*models.Purchase, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	CompleteSalePayment(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, reference string) (SettlementOutcome, error)
}

type ServiceParams struct {
	Repo              Repository
	Builder           *Builder
	Stock             StockLedger
	Numbers           numberGenerator
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Metrics           orderMetrics
	Logger            *logger.Logger
	Config            config.OrdersConfig
	Clock             func() time.Time
}

type service struct {
	repo      Repository
	builder   *Builder
	stock     StockLedger
	numbers   numberGenerator
	tx        txRunner
	outbox    outboxPublisher
	metrics   orderMetrics
	logg      *logger.Logger
	now       func() time.Time
	salePfx   string
	purchPfx  string
	retries   uint64
	retryBase time.Duration
}

type noopMetrics struct{}

func (noopMetrics) OrderCommitted(string, string) {}
func (noopMetrics) OrderRejected(string, string)  {}
func (noopMetrics) CommitRetried(string)          {}

// NewService builds the coordinator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	case params.Builder == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order builder required")
	case params.Stock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger required")
	case params.Numbers == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order number generator required")
	case params.TransactionRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}

	cfg := params.Config
	if cfg.SalePrefix == "" {
		cfg.SalePrefix = "INV"
	}
	if cfg.PurchasePrefix == "" {
		cfg.PurchasePrefix = "PO"
	}
	if cfg.CommitRetries < 0 {
		cfg.CommitRetries = 0
	}
	if cfg.CommitRetryBase <= 0 {
		cfg.CommitRetryBase = 20 * time.Millisecond
	}

	svc := &service{
		repo:      params.Repo,
		builder:   params.Builder,
		stock:     params.Stock,
		numbers:   params.Numbers,
		tx:        params.TransactionRunner,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       params.Clock,
		salePfx:   cfg.SalePrefix,
		purchPfx:  cfg.PurchasePrefix,
		retries:   uint64(cfg.CommitRetries),
		retryBase: cfg.CommitRetryBase,
	}
	if svc.metrics == nil {
		svc.metrics = noopMetrics{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// commit runs fn in one transaction detached from request cancellation and
// retries the whole unit when it fails with a conflict (an order number race).
func (s *service) commit(ctx context.Context, kind string, fn func(ctx context.Context, tx *gorm.DB) error) error {
	commitCtx := context.WithoutCancel(ctx)
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.retryBase))

	err := retry.Do(commitCtx, backoff, func(ctx context.Context) error {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return fn(ctx, tx)
		})
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.metrics.CommitRetried(kind)
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "kind", kind), "order commit conflict, retrying")
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		s.metrics.OrderRejected(kind, string(code))
	}
	return err
}

func requireActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func (s *service) CreateSale(ctx context.Context, input SaleInput) (*models.Sale, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}

	var created *models.Sale
	err := s.commit(ctx, kindSale, func(ctx context.Context, tx *gorm.DB) error {
		draft, err := s.builder.BuildSale(ctx, tx, input)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		number, err := s.numbers.Next(ctx, tx, s.salePfx, now)
		if err != nil {
			return err
		}

		sale := &models.Sale{
			ID:            uuid.New(),
			OrderNumber:   number,
			CustomerID:    input.CustomerID,
			ActorID:       input.Actor.UserID,
			ActorRole:     input.Actor.Role.String(),
			SubtotalCents: draft.SubtotalCents,
			VATCents:      draft.VATCents,
			DiscountCents: draft.DiscountCents,
			TotalCents:    draft.TotalCents,
			Status:        initialSaleStatus(input.PaymentMethod),
			PaymentMethod: input.PaymentMethod,
			Notes:         input.Notes,
		}
		if sale.Status == enums.SaleStatusCompleted {
			sale.CompletedAt = &now
		}
		for _, line := range draft.Lines {
			sale.Items = append(sale.Items, models.SaleItem{
				ID:             uuid.New(),
				SaleID:         sale.ID,
				ProductID:      line.Product.ID,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitCents,
				VATRate:        line.VATRate,
				VATInclusive:   line.VATInclusive,
				VATCents:       line.VATCents,
				DiscountCents:  line.DiscountCents,
				LineTotalCents: line.LineTotalCents,
				IsService:      line.Product.IsService,
			})
		}

		if err := s.repo.WithTx(tx).CreateSale(ctx, sale); err != nil {
			return err
		}
		for _, line := range draft.Lines {
			if line.Product.IsService {
				continue
			}
			if err := s.stock.Decrement(ctx, tx, line.Product.ID, line.Quantity); err != nil {
				return err
			}
		}
		if err := s.outbox.Emit(ctx, tx, saleCreatedEvent(sale, input.Actor)); err != nil {
			return err
		}

		created = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCommitted(kindSale, created.Status.String())
	if s.logg != nil {
		logCtx := s.logg.WithOrderNumber(ctx, created.OrderNumber)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"sale_id":     created.ID.String(),
			"status":      created.Status,
			"total_cents": created.TotalCents,
		}), "sale committed")
	}
	return created, nil
}

func (s *service) CreatePurchase(ctx context.Context, input PurchaseInput) (*models.Purchase, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}

	var created *models.Purchase
	err := s.commit(ctx, kindPurchase, func(ctx context.Context, tx *gorm.DB) error {
		draft, err := s.builder.BuildPurchase(ctx, tx, input)
		if err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, tx, s.purchPfx, s.now().UTC())
		if err != nil {
			return err
		}

		purchase := &models.Purchase{
			ID:            uuid.New(),
			OrderNumber:   number,
			SupplierID:    input.SupplierID,
			ActorID:       input.Actor.UserID,
			ActorRole:     input.Actor.Role.String(),
			SubtotalCents: draft.SubtotalCents,
			VATCents:      draft.VATCents,
			DiscountCents: draft.DiscountCents,
			TotalCents:    draft.TotalCents,
			Status:        enums.PurchaseStatusPending,
			PaymentMethod: input.PaymentMethod,
			Notes:         input.Notes,
			ExpectedAt:    input.ExpectedAt,
		}
		for _, line := range draft.Lines {
			purchase.Items = append(purchase.Items, models.PurchaseItem{
				ID:             uuid.New(),
				PurchaseID:     purchase.ID,
				ProductID:      line.Product.ID,
				Quantity:       line.Quantity,
				UnitCostCents:  line.UnitCents,
				VATRate:        line.VATRate,
				VATCents:       line.VATCents,
				DiscountCents:  line.DiscountCents,
				LineTotalCents: line.LineTotalCents,
				IsService:      line.Product.IsService,
			})
		}

		if err := s.repo.WithTx(tx).CreatePurchase(ctx, purchase); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, purchaseCreatedEvent(purchase, input.Actor)); err != nil {
			return err
		}
		created = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCommitted(kindPurchase, created.Status.String())
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderNumber(ctx, created.OrderNumber), "purchase committed")
	}
	return created, nil
}

// ReceivePurchase applies received quantities to purchase lines and returns
// the goods to stock, all in one transaction.
func (s *service) ReceivePurchase(ctx context.Context, input ReceiveInput) (*models.Purchase, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.PurchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line must be received")
	}
	requested := map[uuid.UUID]int{}
	order := make([]uuid.UUID, 0, len(input.Lines))
	for i, line := range input.Lines {
		if line.ItemID == uuid.Nil {
			return nil, lineError(i, "purchase item id is required")
		}
		if line.Quantity <= 0 {
			return nil, lineError(i, "received quantity must be positive")
		}
		if _, seen := requested[line.ItemID]; !seen {
			order = append(order, line.ItemID)
		}
		requested[line.ItemID] += line.Quantity
	}

	var result *models.Purchase
	err := s.commit(ctx, kindPurchase, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchase, err := repo.LockPurchase(ctx, input.PurchaseID)
		if err != nil {
			return err
		}
		if purchase.Status.IsTerminal() {
			return invalidTransition(kindPurchase, purchase.Status.String(), enums.PurchaseStatusReceived.String())
		}

		items := make(map[uuid.UUID]models.PurchaseItem, len(purchase.Items))
		for _, item := range purchase.Items {
			items[item.ID] = item
		}

		now := s.now().UTC()
		for _, itemID := range order {
			qty := requested[itemID]
			item, ok := items[itemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase item not found").
					WithDetails(map[string]any{"purchase_item_id": itemID})
			}
			if item.QuantityReceived+qty > item.Quantity {
				return overReceived(item, qty)
			}
			applied, err := repo.ApplyReceipt(ctx, itemID, qty, now)
			if err != nil {
				return err
			}
			if !applied {
				return overReceived(item, qty)
			}
			if !item.IsService {
				if err := s.stock.Increment(ctx, tx, item.ProductID, qty); err != nil {
					return err
				}
			}
		}

		updated, err := repo.FindPurchase(ctx, purchase.ID)
		if err != nil {
			return err
		}
		next := enums.PurchaseStatusReceived
		for _, item := range updated.Items {
			if !item.FullyReceived() {
				next = enums.PurchaseStatusOrdered
				break
			}
		}

		if next != purchase.Status {
			updates := map[string]any{}
			if next == enums.PurchaseStatusReceived {
				updates["received_at"] = now
			}
			changed, err := repo.TransitionPurchase(ctx, purchase.ID, purchase.Status, next, updates)
			if err != nil {
				return err
			}
			if !changed {
				return pkgerrors.New(pkgerrors.CodeConflict, "purchase changed concurrently")
			}
			if err := s.outbox.Emit(ctx, tx, statusChangedEvent(kindPurchase, purchase.ID, purchase.OrderNumber,
				purchase.Status.String(), next.String(), "received", now, input.Actor)); err != nil {
				return err
			}
			updated.Status = next
			if next == enums.PurchaseStatusReceived {
				updated.ReceivedAt = &now
			}
		}

		if err := s.outbox.Emit(ctx, tx, purchaseReceivedEvent(updated, requested, input.Actor)); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func overReceived(item models.PurchaseItem, qty int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "received quantity exceeds ordered quantity").
		WithDetails(map[string]any{
			"purchase_item_id":  item.ID,
			"quantity_ordered":  item.Quantity,
			"quantity_received": item.QuantityReceived,
			"quantity_request":  qty,
		})
}

func (s *service) UpdateSaleStatus(ctx context.Context, input SaleStatusInput) (*models.Sale, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown sale status").
			WithDetails(map[string]any{"status": input.Status})
	}

	var result *models.Sale
	err := s.commit(ctx, kindSale, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.LockSale(ctx, input.SaleID)
		if err != nil {
			return err
		}
		if !canTransitionSale(sale.Status, input.Status) {
			return invalidTransition(kindSale, sale.Status.String(), input.Status.String())
		}

		now := s.now().UTC()
		changed, err := repo.TransitionSale(ctx, sale.ID, sale.Status, input.Status, saleTimestamps(input.Status, now))
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeConflict, "sale changed concurrently")
		}

		if restocksOnTransition(input.Status) {
			for _, item := range sale.Items {
				if item.IsService {
					continue
				}
				if err := s.stock.Increment(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := s.outbox.Emit(ctx, tx, statusChangedEvent(kindSale, sale.ID, sale.OrderNumber,
			sale.Status.String(), input.Status.String(), input.Reason, now, input.Actor)); err != nil {
			return err
		}

		result, err = repo.FindSale(ctx, sale.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func saleTimestamps(status enums.SaleStatus, now time.Time) map[string]any {
	switch status {
	case enums.SaleStatusCompleted:
		return map[string]any{"completed_at": now}
	case enums.SaleStatusCancelled:
		return map[string]any{"cancelled_at": now}
	case enums.SaleStatusRefunded:
		return map[string]any{"refunded_at": now}
	default:
		return nil
	}
}

func (s *service) UpdatePurchaseStatus(ctx context.Context, input PurchaseStatusInput) (*models.Purchase, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase status").
			WithDetails(map[string]any{"status": input.Status})
	}

	var result *models.Purchase
	err := s.commit(ctx, kindPurchase, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchase, err := repo.LockPurchase(ctx, input.PurchaseID)
		if err != nil {
			return err
		}
		if !canTransitionPurchase(purchase.Status, input.Status) {
			return invalidTransition(kindPurchase, purchase.Status.String(), input.Status.String())
		}

		now := s.now().UTC()
		var updates map[string]any
		if input.Status == enums.PurchaseStatusCancelled {
			updates = map[string]any{"cancelled_at": now}
		}
		changed, err := repo.TransitionPurchase(ctx, purchase.ID, purchase.Status, input.Status, updates)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase changed concurrently")
		}

		if err := s.outbox.Emit(ctx, tx, statusChangedEvent(kindPurchase, purchase.ID, purchase.OrderNumber,
			purchase.Status.String(), input.Status.String(), input.Reason, now, input.Actor)); err != nil {
			return err
		}

		result, err = repo.FindPurchase(ctx, purchase.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	return s.repo.FindSale(ctx, id)
}

func (s *service) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	return s.repo.FindPurchase(ctx, id)
}

// CompleteSalePayment marks a pending sale completed with the payment
// reference, on the caller's transaction. Already completed sales are left
// alone; cancelled or refunded sales are reported as skipped.
func (s *service) CompleteSalePayment(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, reference string) (SettlementOutcome, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "sale settlement requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	sale, err := repo.LockSale(ctx, saleID)
	if err != nil {
		return "", err
	}

	switch sale.Status {
	case enums.SaleStatusCompleted:
		return SettlementAlreadyApplied, nil
	case enums.SaleStatusCancelled, enums.SaleStatusRefunded:
		if s.logg != nil {
			logCtx := s.logg.WithOrderNumber(ctx, sale.OrderNumber)
			s.logg.Warn(s.logg.WithField(logCtx, "status", sale.Status), "payment resolved for a sale that is no longer pending")
		}
		return SettlementSkipped, nil
	}

	now := s.now().UTC()
	changed, err := repo.TransitionSale(ctx, sale.ID, enums.SaleStatusPending, enums.SaleStatusCompleted, map[string]any{
		"completed_at":      now,
		"payment_reference": reference,
	})
	if err != nil {
		return "", err
	}
	if !changed {
		return SettlementAlreadyApplied, nil
	}

	event := statusChangedEvent(kindSale, sale.ID, sale.OrderNumber, enums.SaleStatusPending.String(),
		enums.SaleStatusCompleted.String(), "payment_received", now, Actor{})
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return "", err
	}
	return SettlementApplied, nil
}
