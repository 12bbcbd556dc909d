package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// --- DTOs ---

type BuyerRequest struct {
	LastName  string `json:"last_name" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	Matricule string `json:"matricule" binding:"required"`
	Grade     string `json:"grade" binding:"required,grade"`
}

type SaleLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CreateSaleRequest struct {
	Buyer BuyerRequest      `json:"buyer" binding:"required"`
	Items []SaleLineRequest `json:"items" binding:"dive"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason"` // checked by CancelSale so callers get ErrInvalidReason
	Note   string `json:"note"`
}

type SaleListFilter struct {
	Status    string
	Matricule string
	AgentID   string
	Page      int
	Limit     int
}

type SaleItemResponse struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductWeight string `json:"product_weight"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	LineTotal     int64  `json:"line_total"`
}

type SaleResponse struct {
	ID                 string             `json:"id"`
	ReceiptNumber      string             `json:"receipt_number"`
	AgentID            string             `json:"agent_id"`
	AgentName          string             `json:"agent_name"`
	BuyerLastName      string             `json:"buyer_last_name"`
	BuyerFirstName     string             `json:"buyer_first_name"`
	BuyerMatricule     string             `json:"buyer_matricule"`
	BuyerGrade         string             `json:"buyer_grade"`
	TotalAmount        int64              `json:"total_amount"`
	Status             string             `json:"status"`
	ValidatedBy        *string            `json:"validated_by"`
	ValidatorName      string             `json:"validator_name,omitempty"`
	ValidatedAt        *time.Time         `json:"validated_at"`
	CancelledBy        *string            `json:"cancelled_by"`
	CancellerName      string             `json:"canceller_name,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at"`
	CancellationReason *string            `json:"cancellation_reason"`
	CancellationNote   *string            `json:"cancellation_note"`
	Items              []SaleItemResponse `json:"items"`
	CreatedAt          time.Time          `json:"created_at"`
}

// --- Interface ---

// SaleService owns the sale lifecycle: pending -> validated | cancelled.
// Role checks happen in the HTTP layer; the state rules here hold for any caller.
type SaleService interface {
	CreateSale(ctx context.Context, agentID uuid.UUID, req CreateSaleRequest) (SaleResponse, error)
	ValidateSale(ctx context.Context, receiptNumber string, controllerID uuid.UUID) (SaleResponse, error)
	CancelSale(ctx context.Context, receiptNumber string, agentID uuid.UUID, req CancelSaleRequest) (SaleResponse, error)
	GetByReceipt(ctx context.Context, receiptNumber string) (SaleResponse, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]SaleResponse, error)
	ListByStatus(ctx context.Context, status string) ([]SaleResponse, error)
	ListAll(ctx context.Context, filter SaleListFilter) ([]SaleResponse, int64, error)
	FindPendingByMatricule(ctx context.Context, matricule string) ([]SaleResponse, error)
}

type saleService struct {
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	receipts    ReceiptGenerator
	notifier    Notifier
	policy      LinePolicy
	attempts    int
	now         func() time.Time
}

// SaleOption tunes a SaleService.
type SaleOption func(*saleService)

// WithLinePolicy sets the per-product quantity cap.
func WithLinePolicy(policy LinePolicy) SaleOption {
	return func(s *saleService) { s.policy = policy }
}

// WithReceiptAttempts bounds how many receipt numbers CreateSale tries.
func WithReceiptAttempts(n int) SaleOption {
	return func(s *saleService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithNotifier(n Notifier) SaleOption {
	return func(s *saleService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(now func() time.Time) SaleOption {
	return func(s *saleService) { s.now = now }
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	receipts ReceiptGenerator,
	opts ...SaleOption,
) SaleService {
	s := &saleService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		receipts:    receipts,
		notifier:    noopNotifier{},
		attempts:    5,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Commands ---

func (s *saleService) CreateSale(ctx context.Context, agentID uuid.UUID, req CreateSaleRequest) (SaleResponse, error) {
	buyer, err := buyerSnapshot(req.Buyer)
	if err != nil {
		return SaleResponse{}, err
	}

	requested := make([]RequestedLine, 0, len(req.Items))
	for _, item := range req.Items {
		pid, parseErr := uuid.Parse(item.ProductID)
		if parseErr != nil {
			return SaleResponse{}, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
		requested = append(requested, RequestedLine{ProductID: pid, Quantity: item.Quantity})
	}
	if len(requested) == 0 {
		return SaleResponse{}, ErrEmptySelection
	}

	catalog, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return SaleResponse{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	lines, total, err := ComputeLines(catalog, requested, s.policy)
	if err != nil {
		return SaleResponse{}, err
	}

	var receipt string
	for attempt := 1; attempt <= s.attempts; attempt++ {
		receipt = s.receipts.Generate()

		items := make([]model.SaleItem, len(lines))
		copy(items, lines)
		sale := model.Sale{
			ReceiptNumber:  receipt,
			AgentID:        agentID,
			BuyerLastName:  buyer.BuyerLastName,
			BuyerFirstName: buyer.BuyerFirstName,
			BuyerMatricule: buyer.BuyerMatricule,
			BuyerGrade:     buyer.BuyerGrade,
			TotalAmount:    total,
			Status:         model.SaleStatusPending,
			Items:          items,
			CreatedAt:      s.now(),
		}

		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if createErr := s.saleRepo.Create(txCtx, &sale); createErr != nil {
				return createErr
			}

			details, _ := json.Marshal(map[string]interface{}{
				"total_amount": total,
				"lines":        len(items),
				"matricule":    sale.BuyerMatricule,
			})
			return s.auditRepo.Log(txCtx, &model.AuditLog{
				UserID:     &agentID,
				Action:     model.ActionCreateSale,
				EntityID:   receipt,
				EntityName: sale.BuyerLastName + " " + sale.BuyerFirstName,
				Details:    string(details),
			})
		})
		if errors.Is(err, repository.ErrDuplicateKey) {
			log.Warn().Str("receipt_number", receipt).Int("attempt", attempt).Msg("receipt number collision, retrying")
			continue
		}
		if err != nil {
			return SaleResponse{}, fmt.Errorf("failed to create sale: %w", err)
		}
		break
	}
	if err != nil {
		return SaleResponse{}, fmt.Errorf("%w: gave up after %d attempts", ErrDuplicateReceipt, s.attempts)
	}

	created, err := s.load(ctx, receipt)
	if err != nil {
		return SaleResponse{}, err
	}

	log.Info().Str("receipt_number", receipt).Str("agent_id", agentID.String()).Int64("total_amount", total).Msg("sale created")
	s.publish(EventSaleCreated, created, agentID)
	return created, nil
}

func (s *saleService) ValidateSale(ctx context.Context, receiptNumber string, controllerID uuid.UUID) (SaleResponse, error) {
	receipt := NormalizeReceipt(receiptNumber)
	now := s.now()

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.saleRepo.MarkValidated(txCtx, receipt, controllerID, now)
		if err != nil {
			return fmt.Errorf("failed to validate sale: %w", err)
		}
		if !ok {
			current, findErr := s.saleRepo.FindByReceipt(txCtx, receipt)
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, receipt)
			}
			if findErr != nil {
				return fmt.Errorf("failed to load sale: %w", findErr)
			}
			return fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, receipt, current.Status)
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:   &controllerID,
			Action:   model.ActionValidateSale,
			EntityID: receipt,
			Details:  `{"status":"validated"}`,
		})
	})
	if err != nil {
		return SaleResponse{}, err
	}

	validated, err := s.load(ctx, receipt)
	if err != nil {
		return SaleResponse{}, err
	}

	log.Info().Str("receipt_number", receipt).Str("controller_id", controllerID.String()).Msg("sale validated")
	s.publish(EventSaleValidated, validated, controllerID)
	return validated, nil
}

func (s *saleService) CancelSale(ctx context.Context, receiptNumber string, agentID uuid.UUID, req CancelSaleRequest) (SaleResponse, error) {
	reason := model.CancellationReason(strings.TrimSpace(req.Reason))
	if !reason.Valid() {
		return SaleResponse{}, fmt.Errorf("%w: %q", ErrInvalidReason, req.Reason)
	}
	var note *string
	if trimmed := strings.TrimSpace(req.Note); trimmed != "" {
		note = &trimmed
	}

	receipt := NormalizeReceipt(receiptNumber)
	now := s.now()

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.saleRepo.MarkCancelled(txCtx, receipt, agentID, now, reason, note)
		if err != nil {
			return fmt.Errorf("failed to cancel sale: %w", err)
		}
		if !ok {
			current, findErr := s.saleRepo.FindByReceipt(txCtx, receipt)
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, receipt)
			}
			if findErr != nil {
				return fmt.Errorf("failed to load sale: %w", findErr)
			}
			// Another agent's receipt is reported as missing
			if current.AgentID != agentID {
				return fmt.Errorf("%w: %s", ErrNotFound, receipt)
			}
			switch current.State().(type) {
			case model.Validated:
				return fmt.Errorf("%w: %s is already validated", ErrInvalidState, receipt)
			case model.Cancelled:
				return fmt.Errorf("%w: %s is already cancelled", ErrInvalidState, receipt)
			default:
				return fmt.Errorf("%w: %s changed concurrently", ErrInvalidState, receipt)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"reason": reason,
			"note":   note,
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:   &agentID,
			Action:   model.ActionCancelSale,
			EntityID: receipt,
			Details:  string(details),
		})
	})
	if err != nil {
		return SaleResponse{}, err
	}

	cancelled, err := s.load(ctx, receipt)
	if err != nil {
		return SaleResponse{}, err
	}

	log.Info().Str("receipt_number", receipt).Str("agent_id", agentID.String()).Str("reason", string(reason)).Msg("sale cancelled")
	s.publish(EventSaleCancelled, cancelled, agentID)
	return cancelled, nil
}

// --- Queries ---

func (s *saleService) GetByReceipt(ctx context.Context, receiptNumber string) (SaleResponse, error) {
	return s.load(ctx, NormalizeReceipt(receiptNumber))
}

func (s *saleService) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]SaleResponse, error) {
	sales, _, err := s.saleRepo.List(ctx, repository.SaleFilter{AgentID: &agentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list agent sales: %w", err)
	}
	return toSaleResponses(sales), nil
}

func (s *saleService) ListByStatus(ctx context.Context, status string) ([]SaleResponse, error) {
	st := model.SaleStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	sales, _, err := s.saleRepo.List(ctx, repository.SaleFilter{Status: st})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return toSaleResponses(sales), nil
}

func (s *saleService) ListAll(ctx context.Context, filter SaleListFilter) ([]SaleResponse, int64, error) {
	repoFilter := repository.SaleFilter{
		Matricule: filter.Matricule,
		Page:      filter.Page,
		Limit:     filter.Limit,
	}
	if filter.Status != "" {
		st := model.SaleStatus(filter.Status)
		if !st.Valid() {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
		}
		repoFilter.Status = st
	}
	if filter.AgentID != "" {
		agentID, err := uuid.Parse(filter.AgentID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidAgentID, filter.AgentID)
		}
		repoFilter.AgentID = &agentID
	}

	sales, total, err := s.saleRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	return toSaleResponses(sales), total, nil
}

func (s *saleService) FindPendingByMatricule(ctx context.Context, matricule string) ([]SaleResponse, error) {
	sales, _, err := s.saleRepo.List(ctx, repository.SaleFilter{
		Status:         model.SaleStatusPending,
		Matricule:      matricule,
		ExactMatricule: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending sales: %w", err)
	}
	return toSaleResponses(sales), nil
}

// --- Helpers ---

func (s *saleService) load(ctx context.Context, receipt string) (SaleResponse, error) {
	sale, err := s.saleRepo.FindByReceipt(ctx, receipt)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SaleResponse{}, fmt.Errorf("%w: %s", ErrNotFound, receipt)
	}
	if err != nil {
		return SaleResponse{}, fmt.Errorf("failed to load sale: %w", err)
	}
	return toSaleResponse(*sale), nil
}

func (s *saleService) publish(eventType string, sale SaleResponse, actorID uuid.UUID) {
	s.notifier.Publish(SaleEvent{
		Type:          eventType,
		ReceiptNumber: sale.ReceiptNumber,
		Status:        sale.Status,
		TotalAmount:   sale.TotalAmount,
		ActorID:       actorID.String(),
		At:            s.now(),
	})
}

func buyerSnapshot(req BuyerRequest) (model.Sale, error) {
	buyer := model.Sale{
		BuyerLastName:  strings.TrimSpace(req.LastName),
		BuyerFirstName: strings.TrimSpace(req.FirstName),
		BuyerMatricule: strings.TrimSpace(req.Matricule),
		BuyerGrade:     model.Grade(strings.TrimSpace(req.Grade)),
	}
	if buyer.BuyerLastName == "" || buyer.BuyerFirstName == "" || buyer.BuyerMatricule == "" {
		return model.Sale{}, ErrInvalidBuyer
	}
	if !buyer.BuyerGrade.Valid() {
		return model.Sale{}, fmt.Errorf("%w: %q", ErrInvalidGrade, req.Grade)
	}
	return buyer, nil
}

func toSaleResponses(sales []model.Sale) []SaleResponse {
	result := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		result = append(result, toSaleResponse(sale))
	}
	return result
}

func toSaleResponse(sale model.Sale) SaleResponse {
	resp := SaleResponse{
		ID:             sale.ID.String(),
		ReceiptNumber:  sale.ReceiptNumber,
		AgentID:        sale.AgentID.String(),
		BuyerLastName:  sale.BuyerLastName,
		BuyerFirstName: sale.BuyerFirstName,
		BuyerMatricule: sale.BuyerMatricule,
		BuyerGrade:     string(sale.BuyerGrade),
		TotalAmount:    sale.TotalAmount,
		Status:         string(sale.Status),
		Items:          make([]SaleItemResponse, 0, len(sale.Items)),
		CreatedAt:      sale.CreatedAt,
	}
	if sale.Agent != nil {
		resp.AgentName = sale.Agent.Name
	}

	switch st := sale.State().(type) {
	case model.Validated:
		by := st.By.String()
		at := st.At
		resp.ValidatedBy = &by
		resp.ValidatedAt = &at
		if sale.Validator != nil {
			resp.ValidatorName = sale.Validator.Name
		}
	case model.Cancelled:
		by := st.By.String()
		at := st.At
		reason := string(st.Reason)
		resp.CancelledBy = &by
		resp.CancelledAt = &at
		resp.CancellationReason = &reason
		if st.Note != "" {
			note := st.Note
			resp.CancellationNote = &note
		}
		if sale.Canceller != nil {
			resp.CancellerName = sale.Canceller.Name
		}
	}

	for _, item := range sale.Items {
		line := SaleItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.ProductWeight = item.Product.Weight
		}
		resp.Items = append(resp.Items, line)
	}

	return resp
}
