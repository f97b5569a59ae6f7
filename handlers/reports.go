package handlers

import (
	"net/http"
	"time"

	"workhours/models"
	"workhours/report"

	"github.com/sirupsen/logrus"
)

type ReportHandler struct {
	agg *report.Aggregator
	log *logrus.Logger
}

func NewReportHandler(agg *report.Aggregator, log *logrus.Logger) *ReportHandler {
	return &ReportHandler{agg: agg, log: log}
}

// OrdersReport streams the per-order planned/spent/remaining workbook for a
// date range. Unlike the task table, an empty range here means all time: the
// report covers whatever period the operator asked for, bounded or not.
func (h *ReportHandler) OrdersReport(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}

	tasks, err := h.agg.TasksInRange(r.Context(), report.Filter{
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	rows, err := h.agg.OrderTotals(r.Context(), tasks)
	if err != nil {
		respondError(w, err)
		return
	}

	workbook, err := report.BuildOrdersWorkbook(rows)
	if err != nil {
		respondError(w, err)
		return
	}

	h.log.WithField("orders", len(rows)).Info("orders report generated")
	streamWorkbook(w, workbook, report.ExportFilename("orders_report", time.Now().Format(models.DateFormat)))
}
