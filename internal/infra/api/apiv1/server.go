// File: internal/infra/api/apiv1/server.go
package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/infra/metrics"
	"brontie-core/internal/usecase"
)

// Server exposes voucher, analytics and payout operations over HTTP.
type Server struct {
	vouchers  usecase.VoucherUseCase
	analytics usecase.AnalyticsUseCase
	payouts   usecase.PayoutUseCase

	// minDate clamps every requested date_from; data before platform launch
	// would skew cohort and funnel reports.
	minDate time.Time
	log     *zerolog.Logger
}

func NewServer(
	vouchers usecase.VoucherUseCase,
	analytics usecase.AnalyticsUseCase,
	payouts usecase.PayoutUseCase,
	minDate time.Time,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		vouchers:  vouchers,
		analytics: analytics,
		payouts:   payouts,
		minDate:   minDate,
		log:       logger,
	}
}

// RegisterAPIV1 attaches all v1 routes to the router with absolute paths,
// so the caller mounts at root.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout/completed", s.handleCheckoutCompleted)
		r.Post("/vouchers/{voucherID}/redeem", s.handleRedeem)
		r.Post("/vouchers/{voucherID}/refund", s.handleRefund)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/funnel", s.handleFunnel)
			r.Get("/fees", s.handleFees)
			r.Get("/products", s.handleProducts)
			r.Get("/redemption-delay", s.handleRedemptionDelay)
			r.Get("/viral", requireAdmin(s.handleViral))
			r.Get("/revenue", requireAdmin(s.handleMasterRevenue))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/pending", s.handlePendingTotals)
			r.Get("/recent", s.handleRecentPaid)
			r.Post("/mark-paid", requireAdmin(s.handleMarkPaid))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ---------------- vouchers ----------------

type checkoutCompletedRequest struct {
	PaymentRef     string `json:"payment_ref"`
	GiftItemID     string `json:"gift_item_id"`
	SenderEmail    string `json:"sender_email"`
	RecipientEmail string `json:"recipient_email"`
	RecipientToken string `json:"recipient_token"`
	AmountGross    string `json:"amount_gross,omitempty"`
}

func (s *Server) handleCheckoutCompleted(w http.ResponseWriter, r *http.Request) {
	var req checkoutCompletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var gross *decimal.Decimal
	if req.AmountGross != "" {
		d, err := decimal.NewFromString(req.AmountGross)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount_gross is not a decimal")
			return
		}
		gross = &d
	}

	v, created, err := s.vouchers.CreateFromCheckout(r.Context(), usecase.CreateVoucherInput{
		PaymentRef:     req.PaymentRef,
		GiftItemID:     req.GiftItemID,
		SenderEmail:    req.SenderEmail,
		RecipientEmail: req.RecipientEmail,
		RecipientToken: req.RecipientToken,
		AmountGross:    gross,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if created {
		metrics.IncVouchersIssued()
		writeJSON(w, http.StatusCreated, voucherJSON(v))
		return
	}
	writeJSON(w, http.StatusOK, voucherJSON(v))
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "voucherID")
	v, err := s.vouchers.Redeem(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncVoucherEvent("redeemed")
	writeJSON(w, http.StatusOK, voucherJSON(v))
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "voucherID")
	if err := s.vouchers.Refund(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncVoucherEvent("refunded")
	writeJSON(w, http.StatusOK, map[string]string{"voucher_id": id, "status": "refunded"})
}

func voucherJSON(v *model.Voucher) map[string]interface{} {
	out := map[string]interface{}{
		"voucher_id":  v.ID,
		"payment_ref": v.PaymentRef,
		"merchant_id": v.MerchantID,
		"status":      string(v.Status),
		"created_at":  v.CreatedAt,
	}
	if v.RedeemedAt != nil {
		out["redeemed_at"] = v.RedeemedAt
	}
	return out
}

// ---------------- analytics ----------------

func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.analytics.Funnel(r.Context(), effectiveMerchantID(r), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncAnalyticsReport("funnel")
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.analytics.FeeTotals(r.Context(), effectiveMerchantID(r), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncAnalyticsReport("fees")
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.analytics.ProductMix(r.Context(), effectiveMerchantID(r), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncAnalyticsReport("products")
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func (s *Server) handleRedemptionDelay(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.analytics.RedemptionDelay(r.Context(), effectiveMerchantID(r), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncAnalyticsReport("redemption_delay")
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleViral(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.analytics.Viral(r.Context(), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncAnalyticsReport("viral")
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleMasterRevenue(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.analytics.MasterRevenue(r.Context(), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncAnalyticsReport("revenue")
	writeJSON(w, http.StatusOK, rep)
}

// ---------------- payouts ----------------

func (s *Server) handlePendingTotals(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	totals, err := s.payouts.PendingTotalsByMerchant(r.Context(), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	// Merchant tokens only see their own row.
	if mid := effectiveMerchantID(r); mid != "" {
		filtered := totals[:0]
		for _, t := range totals {
			if t.MerchantID == mid {
				filtered = append(filtered, t)
			}
		}
		totals = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": totals})
}

func (s *Server) handleRecentPaid(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	items, err := s.payouts.RecentPaid(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, pi := range items {
		row := map[string]interface{}{
			"voucher_id":     pi.VoucherID,
			"merchant_id":    pi.MerchantID,
			"amount_payable": pi.AmountPayable,
			"status":         string(pi.Status),
			"transfer_ref":   pi.TransferRef,
		}
		if pi.PaidAt != nil {
			row["paid_at"] = pi.PaidAt
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

type markPaidRequest struct {
	MerchantID  string `json:"merchant_id"`
	CutoffDate  string `json:"cutoff_date"` // YYYY-MM-DD or RFC3339
	TransferRef string `json:"transfer_ref"`
}

type markPaidResponse struct {
	MarkedAsPaid int       `json:"marked_as_paid"`
	CutoffDate   time.Time `json:"cutoff_date"`
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MerchantID == "" {
		writeError(w, http.StatusBadRequest, "merchant_id is required")
		return
	}
	cutoff, err := parseTimestamp(req.CutoffDate, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cutoff_date must be YYYY-MM-DD or RFC3339")
		return
	}

	n, err := s.payouts.MarkPaidUpTo(r.Context(), req.MerchantID, cutoff, req.TransferRef)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncPayoutItemsMarkedPaid(n)
	writeJSON(w, http.StatusOK, markPaidResponse{MarkedAsPaid: n, CutoffDate: cutoff})
}

// ---------------- helpers ----------------

// parseRange reads date_from/date_to query params. Date-only values span whole
// days: date_to covers through the end of that day. date_from is clamped to the
// configured platform start.
func (s *Server) parseRange(r *http.Request) (*model.DateRange, error) {
	q := r.URL.Query()
	rawFrom, rawTo := q.Get("date_from"), q.Get("date_to")
	if rawFrom == "" && rawTo == "" && s.minDate.IsZero() {
		return nil, nil
	}

	rng := &model.DateRange{}
	if rawFrom != "" {
		t, err := parseTimestamp(rawFrom, false)
		if err != nil {
			return nil, errors.New("date_from must be YYYY-MM-DD or RFC3339")
		}
		rng.From = &t
	}
	if rawTo != "" {
		t, err := parseTimestamp(rawTo, true)
		if err != nil {
			return nil, errors.New("date_to must be YYYY-MM-DD or RFC3339")
		}
		rng.To = &t
	}
	if !s.minDate.IsZero() && (rng.From == nil || rng.From.Before(s.minDate)) {
		min := s.minDate
		rng.From = &min
	}
	return rng, nil
}

// parseTimestamp accepts RFC3339 or a bare date. endOfDay shifts a bare date
// to its last representable instant so inclusive upper bounds work.
func parseTimestamp(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrVoucherNotRedeemable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPayoutLocked):
		writeError(w, http.StatusConflict, "payout batch already running")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
