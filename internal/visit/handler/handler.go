package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/geofence"
	"vigil/internal/platform/config"
	"vigil/internal/visit/models"
	"vigil/internal/visit/service"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
	"vigil/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler exposes over HTTP.
type Service interface {
	Create(ctx context.Context, params service.CreateVisitParams) (*models.Visit, error)
	Get(ctx context.Context, visitID id.VisitID) (*models.Visit, error)
	ListByOfficer(ctx context.Context, officerID id.OfficerID) ([]*models.Visit, error)
	RescheduleHistory(ctx context.Context, visitID id.VisitID) ([]models.RescheduleEntry, error)
	RequestStart(ctx context.Context, visitID id.VisitID, candidate *geofence.Coordinates, toleranceMeters float64) (*models.Visit, error)
	ForceStart(ctx context.Context, visitID id.VisitID, candidate *geofence.Coordinates, overrideReason string) (*models.Visit, error)
	Complete(ctx context.Context, visitID id.VisitID, params service.CompleteParams) (*models.Visit, error)
	Cancel(ctx context.Context, visitID id.VisitID, category models.CancellationCategory, notes string) (*models.Visit, error)
	Reschedule(ctx context.Context, visitID id.VisitID, newScheduledAt time.Time, notes string) (*models.Visit, error)
	ReportException(ctx context.Context, visitID id.VisitID, kind models.ExceptionKind, notes string) (*models.Visit, error)
}

// Handler wires visit lifecycle endpoints to the engine.
type Handler struct {
	service  Service
	logger   *slog.Logger
	geofence config.Geofence
}

// New constructs a visit handler with its dependencies.
func New(service Service, logger *slog.Logger, geofence config.Geofence) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		geofence: geofence,
	}
}

// Register mounts visit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/visits", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Route("/{visitID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/start", h.HandleStart)
			r.Post("/force-start", h.HandleForceStart)
			r.Post("/complete", h.HandleComplete)
			r.Post("/cancel", h.HandleCancel)
			r.Post("/reschedule", h.HandleReschedule)
			r.Post("/exception", h.HandleException)
			r.Get("/reschedules", h.HandleRescheduleHistory)
		})
	})
}

// HandleCreate handles POST /visits requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	officerID, ok := h.requireOfficer(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*CreateRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.Create(ctx, service.CreateVisitParams{
		CitizenID:   req.ParsedCitizenID(),
		OfficerID:   officerID,
		VisitType:   req.ParsedVisitType(),
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		h.logOperationError(ctx, "visit create failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromVisit(visit))
}

// HandleList handles GET /visits requests, scoped to the caller's visits.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	officerID, ok := h.requireOfficer(w, ctx)
	if !ok {
		return
	}

	visits, err := h.service.ListByOfficer(ctx, officerID)
	if err != nil {
		h.logOperationError(ctx, "visit list failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisits(visits))
}

// HandleGet handles GET /visits/{visitID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	visit, err := h.service.Get(ctx, visitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(visit))
}

// HandleStart handles POST /visits/{visitID}/start requests. The
// geofence tolerance depends on the visit type, so the visit is loaded
// before the gate runs; the engine revalidates state under its own lock.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*StartRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.Get(ctx, visitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	started, err := h.service.RequestStart(ctx, visitID, req.Coordinates(), h.toleranceFor(visit.VisitType))
	if err != nil {
		h.logOperationError(ctx, "visit start rejected", err, "visit_id", visitID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(started))
}

// HandleForceStart handles POST /visits/{visitID}/force-start requests.
func (h *Handler) HandleForceStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*ForceStartRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.ForceStart(ctx, visitID, req.Coordinates(), req.Reason)
	if err != nil {
		h.logOperationError(ctx, "visit force-start failed", err, "visit_id", visitID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(visit))
}

// HandleComplete handles POST /visits/{visitID}/complete requests.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*CompleteRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.Complete(ctx, visitID, service.CompleteParams{
		Assessment:      req.Assessment,
		Location:        req.Coordinates(),
		Notes:           req.Notes,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		h.logOperationError(ctx, "visit completion failed", err, "visit_id", visitID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(visit))
}

// HandleCancel handles POST /visits/{visitID}/cancel requests.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*CancelRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.Cancel(ctx, visitID, req.ParsedCategory(), req.Notes)
	if err != nil {
		h.logOperationError(ctx, "visit cancel failed", err, "visit_id", visitID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(visit))
}

// HandleReschedule handles POST /visits/{visitID}/reschedule requests.
func (h *Handler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*RescheduleRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.Reschedule(ctx, visitID, req.ScheduledAt, req.Notes)
	if err != nil {
		h.logOperationError(ctx, "visit reschedule failed", err, "visit_id", visitID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(visit))
}

// HandleException handles POST /visits/{visitID}/exception requests.
func (h *Handler) HandleException(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*ExceptionRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	visit, err := h.service.ReportException(ctx, visitID, req.ParsedKind(), req.Notes)
	if err != nil {
		h.logOperationError(ctx, "visit exception report failed", err, "visit_id", visitID, "kind", req.Kind)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVisit(visit))
}

// HandleRescheduleHistory handles GET /visits/{visitID}/reschedules requests.
func (h *Handler) HandleRescheduleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireOfficer(w, ctx); !ok {
		return
	}
	visitID, ok := h.pathVisitID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.RescheduleHistory(ctx, visitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRescheduleEntries(entries))
}

func (h *Handler) requireOfficer(w http.ResponseWriter, ctx context.Context) (id.OfficerID, bool) {
	officerID := requestcontext.OfficerID(ctx)
	if officerID == (id.OfficerID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.OfficerID{}, false
	}
	return officerID, true
}

func (h *Handler) pathVisitID(w http.ResponseWriter, r *http.Request) (id.VisitID, bool) {
	visitID, err := id.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.VisitID{}, false
	}
	return visitID, true
}

func (h *Handler) toleranceFor(visitType models.VisitType) float64 {
	if visitType == models.VisitTypeEmergency {
		return h.geofence.EmergencyToleranceMeters
	}
	return h.geofence.DefaultToleranceMeters
}

func (h *Handler) logOperationError(ctx context.Context, msg string, err error, args ...any) {
	if h.logger == nil {
		return
	}
	args = append(args,
		"request_id", requestcontext.RequestID(ctx),
		"officer_id", requestcontext.OfficerID(ctx),
		"error", err,
	)
	h.logger.ErrorContext(ctx, msg, args...)
}
