package controllers

import (
	"net/http"
	"strings"

	"github.com/Nubiru/chamana-sub000/api/responses"
	"github.com/Nubiru/chamana-sub000/api/validators"
	"github.com/Nubiru/chamana-sub000/internal/reports"
	"github.com/Nubiru/chamana-sub000/pkg/config"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
	"github.com/Nubiru/chamana-sub000/pkg/logger"
)

func CommissionReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.CommissionSummary(r.Context(), reports.CommissionInput{
			From: from,
			To:   to,
			Rate: strings.TrimSpace(r.URL.Query().Get("rate")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func LowStockReport(svc reports.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		defaultThreshold := 5
		if cfg != nil && cfg.Reports.LowStockThreshold > 0 {
			defaultThreshold = cfg.Reports.LowStockThreshold
		}
		threshold, err := validators.ParseQueryInt(r, "threshold", defaultThreshold, 1, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.LowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
