package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mchmarny/riskpulse/pkg/config"
	"github.com/mchmarny/riskpulse/pkg/data"
	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/report"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/mchmarny/riskpulse/pkg/stress"
)

const maxBodyBytes = 1 << 16

// Handler serves the JSON API. The loan book is loaded once and never
// mutated; every request fits its own session.
type Handler struct {
	cfg   *config.Config
	ds    *loan.Dataset
	store *data.Store
	out   *report.Formatter
}

// NewHandler creates an API handler over ds. Run history stays disabled
// until a store is attached.
func NewHandler(cfg *config.Config, ds *loan.Dataset) *Handler {
	return &Handler{
		cfg: cfg,
		ds:  ds,
		out: report.New(cfg.Output.Currency),
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/evaluate", h.handleEvaluate).Methods(http.MethodGet)
	api.HandleFunc("/assess", h.handleAssess).Methods(http.MethodPost)
	api.HandleFunc("/compare", h.handleCompare).Methods(http.MethodGet)
	api.HandleFunc("/runs", h.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", h.handleGetRun).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps caller input problems to 400 and everything else to 500.
func writeFailure(w http.ResponseWriter, err error) {
	if risk.IsPrecondition(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version,
		"records": h.ds.Len(),
		"history": h.store != nil,
	})
}

// options applies the family, stress and lgd query parameters.
func (h *Handler) options(r *http.Request) (risk.Options, error) {
	o := h.cfg.Options()
	q := r.URL.Query()
	if v := q.Get("family"); v != "" {
		o.Family = model.Family(v)
	}
	if v := q.Get("stress"); v != "" {
		o.Stress = stress.Level(v)
	}
	if v := q.Get("lgd"); v != "" {
		lgd, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return o, errInvalidParam("lgd", v)
		}
		o.LGD = lgd
	}
	if err := o.Validate(); err != nil {
		return o, err
	}
	return o, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return &paramError{name: name, value: value}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var pe *paramError
	if errors.As(err, &pe) {
		writeError(w, http.StatusBadRequest, pe.Error())
		return
	}
	writeFailure(w, err)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var detail bool
	if v := r.URL.Query().Get("detail"); v != "" {
		if detail, err = strconv.ParseBool(v); err != nil {
			h.fail(w, errInvalidParam("detail", v))
			return
		}
	}

	ev, err := risk.Evaluate(r.Context(), h.ds, opts)
	if err != nil {
		h.fail(w, err)
		return
	}

	res := &evaluateResult{Evaluation: h.out.Evaluation(ev, detail)}
	res.RunID = h.record(r, data.NewRun(ev, ""))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var b loan.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid borrower: "+err.Error())
		return
	}
	if err := risk.ValidateBorrower(b); err != nil {
		h.fail(w, err)
		return
	}

	s, err := risk.NewSession(opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	if _, err := s.Evaluate(r.Context(), h.ds); err != nil {
		h.fail(w, err)
		return
	}
	a, err := s.Assess(b)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &assessResult{
		Options:  s.Options(),
		Borrower: b,
		Result:   h.out.Card(a),
	})
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	list, err := risk.Compare(r.Context(), h.ds, opts, stress.Levels)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &compareResult{
		Scenarios: scenarios(h.out, list),
		BatchID:   h.record(r, data.NewBatch(list)...),
	})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	limit := data.RunListLimitDefault
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errInvalidParam("limit", v).Error())
			return
		}
		limit = n
	}

	list, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	run, err := h.store.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) record(r *http.Request, runs ...*data.Run) string {
	if h.store == nil || len(runs) == 0 {
		return ""
	}
	if err := h.store.SaveRuns(r.Context(), runs...); err != nil {
		slog.Warn("failed to record run", "error", err)
		return ""
	}
	return runs[0].BatchID
}
