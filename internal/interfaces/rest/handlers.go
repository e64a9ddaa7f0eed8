package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/application/services"
	"github.com/retailstore/payment-service/internal/domain"
)

// ProcessService records and settles a payment for an order.
type ProcessService interface {
	Process(ctx context.Context, cmd services.ProcessCommand) (*domain.Payment, error)
}

// RefundService reverses a completed payment.
type RefundService interface {
	Refund(ctx context.Context, paymentID string) (*domain.Payment, error)
}

// QueryService looks up recorded payments.
type QueryService interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
}

type PaymentHandler struct {
	processService ProcessService
	refundService  RefundService
	queryService   QueryService
	validate       *validator.Validate
	logger         *slog.Logger
}

func NewPaymentHandler(
	processService ProcessService,
	refundService RefundService,
	queryService QueryService,
	logger *slog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		processService: processService,
		refundService:  refundService,
		queryService:   queryService,
		validate:       validator.New(),
		logger:         logger,
	}
}

// RegisterRoutes mounts the payment API. Literal routes are registered before
// the {transactionID} wildcard so chi matches them first.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/process", h.Process)
		r.Get("/order/{orderID}", h.GetByOrderID)
		r.Get("/{transactionID}", h.GetByTransactionID)
		r.Post("/{paymentID}/refund", h.Refund)
	})
}

func (h *PaymentHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "payment-service",
	})
}

func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	payment, err := h.processService.Process(r.Context(), services.ProcessCommand{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Method:  req.PaymentMethod,
	})
	if err != nil {
		// A declined charge has already recorded the FAILED payment; the
		// caller still gets the error status.
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ToAPIPayment(payment),
	})
}

func (h *PaymentHandler) GetByTransactionID(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	payment, err := h.queryService.GetByTransactionID(r.Context(), transactionID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ToAPIPayment(payment),
	})
}

func (h *PaymentHandler) GetByOrderID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	payment, err := h.queryService.GetByOrderID(r.Context(), orderID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ToAPIPayment(payment),
	})
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	payment, err := h.refundService.Refund(r.Context(), paymentID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: RefundResult{
			ID:         payment.ID,
			Status:     string(payment.Status),
			RefundedAt: payment.RefundedAt,
		},
	})
}
