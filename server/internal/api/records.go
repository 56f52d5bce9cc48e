package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/renderworks/plantops/pkg/types"
)

// listParams returns the path factory and the optional ?date= filter.
func listParams(r *http.Request) (factory, date string) {
	return mux.Vars(r)["factory"], r.URL.Query().Get("date")
}

// defaultDate fills in the plant's current day.
func (h *Handler) defaultDate(date string) string {
	if date != "" {
		return date
	}
	return types.DayOf(h.dash.Day(h.now()))
}

// --- cooking cycles ---------------------------------------------------------

func (h *Handler) listCycles(w http.ResponseWriter, r *http.Request) {
	factory, date := listParams(r)
	out := make([]types.CookingCycle, 0)
	for _, c := range h.store.Snapshot(factory).Cycles {
		if date == "" || c.Date == date {
			out = append(out, c)
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// createCycle starts an open cycle (no end_time) or logs a completed one.
func (h *Handler) createCycle(w http.ResponseWriter, r *http.Request) {
	var req CycleRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.fail(w, err)
		return
	}
	c := types.CookingCycle{
		FactoryID: mux.Vars(r)["factory"],
		Date:      h.defaultDate(req.Date),
		End:       req.EndTime,
	}
	if req.StartTime != nil {
		c.Start = *req.StartTime
	} else {
		c.Start = types.Clock(h.now().In(h.dash.Location()))
	}
	c, err := h.store.AddCycle(r.Context(), c)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, c)
}

// finishCycle closes an open cycle, at the current plant clock by default.
func (h *Handler) finishCycle(w http.ResponseWriter, r *http.Request) {
	var req FinishRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := h.lookup(mux.Vars(r)["factory"], KindCycle, id); err != nil {
		h.fail(w, err)
		return
	}
	end := types.Clock(h.now().In(h.dash.Location()))
	if req.EndTime != nil {
		end = *req.EndTime
	}
	c, err := h.store.FinishCycle(r.Context(), id, end)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusOK, c)
}

func (h *Handler) updateCycle(w http.ResponseWriter, r *http.Request) {
	var req CycleRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}
	vars := mux.Vars(r)
	rec, err := h.lookup(vars["factory"], KindCycle, vars["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.authorize(r, rec); err != nil {
		h.fail(w, err)
		return
	}
	prev := rec.(types.CookingCycle)
	c := types.CookingCycle{ID: prev.ID, Date: prev.Date, Start: prev.Start, End: prev.End}
	if req.EndTime != nil {
		c.End = req.EndTime
	}
	if req.Date != "" {
		c.Date = req.Date
	}
	if req.StartTime != nil {
		c.Start = *req.StartTime
	}
	c, err = h.store.UpdateCycle(r.Context(), c)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusOK, c)
}

func (h *Handler) deleteCycle(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, KindCycle, h.store.DeleteCycle)
}

// --- downtime ---------------------------------------------------------------

func (h *Handler) listDowntime(w http.ResponseWriter, r *http.Request) {
	factory, date := listParams(r)
	out := make([]types.DowntimeInterval, 0)
	for _, d := range h.store.Snapshot(factory).Downtime {
		if date == "" || d.Date == date {
			out = append(out, d)
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// startDowntime stops the line now.
func (h *Handler) startDowntime(w http.ResponseWriter, r *http.Request) {
	var req StartDowntimeRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.fail(w, err)
		return
	}
	d, err := h.store.StartDowntime(r.Context(), mux.Vars(r)["factory"], h.defaultDate(""), req.Reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, d)
}

// stopDowntime resumes the line.
func (h *Handler) stopDowntime(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, err := h.lookup(vars["factory"], KindDowntime, vars["id"]); err != nil {
		h.fail(w, err)
		return
	}
	d, err := h.store.StopDowntime(r.Context(), vars["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusOK, d)
}

// logDowntime records downtime after the fact.
func (h *Handler) logDowntime(w http.ResponseWriter, r *http.Request) {
	var req DowntimeRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}
	d := types.DowntimeInterval{
		FactoryID:     mux.Vars(r)["factory"],
		Date:          h.defaultDate(req.Date),
		Reason:        req.Reason,
		DurationHours: req.DurationHours,
	}
	var err error
	if d.Start, err = parseInstant(req.StartTime); err != nil {
		h.fail(w, err)
		return
	}
	if d.End, err = parseInstant(req.EndTime); err != nil {
		h.fail(w, err)
		return
	}
	d, err = h.store.LogDowntime(r.Context(), d)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, d)
}

func (h *Handler) deleteDowntime(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, KindDowntime, h.store.DeleteDowntime)
}

// --- production and receipts --------------------------------------------------

func (h *Handler) listProduction(w http.ResponseWriter, r *http.Request) {
	factory, date := listParams(r)
	out := make([]types.ProductionEntry, 0)
	for _, p := range h.store.Snapshot(factory).Production {
		if date == "" || p.Date == date {
			out = append(out, p)
		}
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) createProduction(w http.ResponseWriter, r *http.Request) {
	var req ProductionRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}
	p, err := h.store.AddProduction(r.Context(), types.ProductionEntry{
		FactoryID: mux.Vars(r)["factory"],
		Date:      h.defaultDate(req.Date),
		InputKg:   req.InputKg,
		OutputKg:  req.OutputKg,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, p)
}

func (h *Handler) deleteProduction(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, KindProduction, h.store.DeleteProduction)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	factory, date := listParams(r)
	out := make([]types.MaterialReceipt, 0)
	for _, m := range h.store.Snapshot(factory).Receipts {
		if date == "" || m.Date == date {
			out = append(out, m)
		}
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var req ReceiptRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}
	m, err := h.store.AddReceipt(r.Context(), types.MaterialReceipt{
		FactoryID:  mux.Vars(r)["factory"],
		Date:       h.defaultDate(req.Date),
		Supplier:   req.Supplier,
		QuantityKg: req.QuantityKg,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, m)
}

func (h *Handler) deleteReceipt(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, KindReceipt, h.store.DeleteReceipt)
}

// deleteRecord looks up the record, runs the edit-lock gate and deletes it.
func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request, kind string,
	del func(ctx context.Context, id string) error) {
	vars := mux.Vars(r)
	rec, err := h.lookup(vars["factory"], kind, vars["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.authorize(r, rec); err != nil {
		h.fail(w, err)
		return
	}
	if err := del(r.Context(), vars["id"]); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseInstant(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: instant %q: want RFC3339", types.ErrInvalid, *s)
	}
	return &t, nil
}
