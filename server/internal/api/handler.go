package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/renderworks/plantops/pkg/types"
	"github.com/renderworks/plantops/server/internal/alerts"
	"github.com/renderworks/plantops/server/internal/dashboard"
	"github.com/renderworks/plantops/server/internal/lock"
	"github.com/renderworks/plantops/server/internal/store"
)

// CredentialHeader carries the supervisor credential on edit-locked routes.
const CredentialHeader = "X-Supervisor-Credential"

// Options wires a Handler.
type Options struct {
	Store     *store.Store
	Dashboard *dashboard.Service

	// Alerts lists firing and recently resolved alerts. Optional.
	Alerts AlertLister

	// Verifier checks the supervisor credential. Nil rejects every credential.
	Verifier lock.Verifier

	// LockWindow is the edit-lock grace period. Zero means lock.DefaultWindow.
	LockWindow time.Duration

	// Factories restricts the accepted {factory} values. Empty accepts any.
	Factories []string

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
}

// AlertLister is the read side of the alert engine.
type AlertLister interface {
	Active() []*alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store     *store.Store
	dash      *dashboard.Service
	alerts    AlertLister
	verifier  lock.Verifier
	window    atomic.Int64
	factories map[string]bool
	now       func() time.Time
	router    *mux.Router
}

// New creates a Handler and registers all routes.
func New(opts Options) *Handler {
	h := &Handler{
		store:    opts.Store,
		dash:     opts.Dashboard,
		alerts:   opts.Alerts,
		verifier: opts.Verifier,
		now:      opts.Now,
		router:   mux.NewRouter(),
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.SetLockWindow(opts.LockWindow)
	if len(opts.Factories) > 0 {
		h.factories = make(map[string]bool, len(opts.Factories))
		for _, f := range opts.Factories {
			h.factories[f] = true
		}
	}

	r := h.router
	r.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts", h.listAlerts).Methods(http.MethodGet)

	f := r.PathPrefix("/api/v1/factories/{factory}").Subrouter()
	f.Use(h.knownFactory)
	f.HandleFunc("/today", h.today).Methods(http.MethodGet)

	f.HandleFunc("/cycles", h.listCycles).Methods(http.MethodGet)
	f.HandleFunc("/cycles", h.createCycle).Methods(http.MethodPost)
	f.HandleFunc("/cycles/{id}/finish", h.finishCycle).Methods(http.MethodPost)
	f.HandleFunc("/cycles/{id}", h.updateCycle).Methods(http.MethodPut)
	f.HandleFunc("/cycles/{id}", h.deleteCycle).Methods(http.MethodDelete)

	f.HandleFunc("/downtime", h.listDowntime).Methods(http.MethodGet)
	f.HandleFunc("/downtime", h.logDowntime).Methods(http.MethodPost)
	f.HandleFunc("/downtime/start", h.startDowntime).Methods(http.MethodPost)
	f.HandleFunc("/downtime/{id}/stop", h.stopDowntime).Methods(http.MethodPost)
	f.HandleFunc("/downtime/{id}", h.deleteDowntime).Methods(http.MethodDelete)

	f.HandleFunc("/production", h.listProduction).Methods(http.MethodGet)
	f.HandleFunc("/production", h.createProduction).Methods(http.MethodPost)
	f.HandleFunc("/production/{id}", h.deleteProduction).Methods(http.MethodDelete)

	f.HandleFunc("/receipts", h.listReceipts).Methods(http.MethodGet)
	f.HandleFunc("/receipts", h.createReceipt).Methods(http.MethodPost)
	f.HandleFunc("/receipts/{id}", h.deleteReceipt).Methods(http.MethodDelete)

	f.HandleFunc("/lock/{kind}/{id}", h.lockStatus).Methods(http.MethodGet)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	for _, rt := range []*mux.Router{r, f} {
		rt.NotFoundHandler = notFound
		rt.MethodNotAllowedHandler = notAllowed
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// SetLockWindow changes the edit-lock window for subsequent requests.
func (h *Handler) SetLockWindow(d time.Duration) {
	h.window.Store(int64(d))
}

func (h *Handler) gate() lock.Gate {
	return lock.Gate{
		Policy:   lock.Policy{Window: time.Duration(h.window.Load())},
		Verifier: h.verifier,
	}
}

// knownFactory rejects factories outside the configured list.
func (h *Handler) knownFactory(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.factories != nil && !h.factories[mux.Vars(r)["factory"]] {
			jsonErr(w, http.StatusNotFound, "unknown factory")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	factories := make([]string, 0, len(h.factories))
	for f := range h.factories {
		factories = append(factories, f)
	}
	sort.Strings(factories)
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Timezone:   h.dash.Location().String(),
		Factories:  factories,
		Version:    h.store.Version(),
		ServerTime: h.now().UTC().Format(time.RFC3339),
	})
}

// listAlerts returns GET /api/v1/alerts: firing alerts plus those resolved
// within the past hour.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// today returns GET /api/v1/factories/{factory}/today.
func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.dash.Today(mux.Vars(r)["factory"], h.now()))
}

// lockStatus returns GET /api/v1/factories/{factory}/lock/{kind}/{id}.
func (h *Handler) lockStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := h.lookup(vars["factory"], vars["kind"], vars["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	now := h.now()
	jsonResp(w, http.StatusOK, LockResponse{
		Kind:           vars["kind"],
		ID:             vars["id"],
		RequiresReauth: h.gate().Policy.RequiresReauth(rec.Stamp(), now),
	})
}

// lookup finds a record of kind belonging to factory.
func (h *Handler) lookup(factory, kind, id string) (lock.Stamped, error) {
	var (
		rec   lock.Stamped
		owner string
		err   error
	)
	switch kind {
	case KindCycle:
		var c types.CookingCycle
		c, err = h.store.Cycle(id)
		rec, owner = c, c.FactoryID
	case KindDowntime:
		var d types.DowntimeInterval
		d, err = h.store.Downtime(id)
		rec, owner = d, d.FactoryID
	case KindProduction:
		var p types.ProductionEntry
		p, err = h.store.Production(id)
		rec, owner = p, p.FactoryID
	case KindReceipt:
		var m types.MaterialReceipt
		m, err = h.store.Receipt(id)
		rec, owner = m, m.FactoryID
	default:
		return nil, errUnknownKind
	}
	if err != nil {
		return nil, err
	}
	if owner != factory {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

// authorize runs the edit-lock gate for rec with the request's credential.
func (h *Handler) authorize(r *http.Request, rec lock.Stamped) error {
	return h.gate().Authorize(rec, h.now(), r.Header.Get(CredentialHeader))
}

// --- helpers ----------------------------------------------------------------

var (
	errUnknownKind = errors.New("unknown record kind")
	errBadBody     = errors.New("invalid JSON body")
)

// fail maps a domain error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lock.ErrReauthRequired):
		jsonErr(w, http.StatusForbidden, "reauth_required")
	case errors.Is(err, lock.ErrInvalidCredential):
		jsonErr(w, http.StatusUnauthorized, "invalid_credential")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errUnknownKind):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrOpenCycle), errors.Is(err, store.ErrOpenDowntime), errors.Is(err, store.ErrClosed):
		jsonErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrInvalid), errors.Is(err, errBadBody):
		jsonErr(w, http.StatusBadRequest, err.Error())
	default:
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched when optional is set.
func decodeBody(r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
