package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	citizenmodels "vigil/internal/citizen/models"
	citizenstore "vigil/internal/citizen/store/citizen"
	"vigil/internal/geofence"
	"vigil/internal/risk"
	"vigil/internal/visit/models"
	"vigil/internal/visit/service/mocks"
	visitstore "vigil/internal/visit/store/visit"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/audit"
	auditmemory "vigil/pkg/platform/audit/store/memory"
	"vigil/pkg/platform/audit/publisher"
	"vigil/pkg/requestcontext"
)

// Connaught Place, New Delhi. nearHome is roughly 15 meters away, farAway
// roughly 5 kilometers due north.
var (
	home     = geofence.Coordinates{Lat: 28.6315, Lng: 77.2167}
	nearHome = geofence.Coordinates{Lat: 28.63163, Lng: 77.21675}
	farAway  = geofence.Coordinates{Lat: 28.6765, Lng: 77.2167}
)

const tolerance = 100.0

type EngineSuite struct {
	suite.Suite
	visits     *visitstore.InMemory
	citizens   *citizenstore.InMemory
	auditStore *auditmemory.InMemoryStore
	engine     *Engine
	ctx        context.Context
	now        time.Time
}

func (s *EngineSuite) SetupTest() {
	s.visits = visitstore.NewInMemory()
	s.citizens = citizenstore.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.engine = NewEngine(s.visits, s.citizens,
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) seedCitizen() *citizenmodels.Citizen {
	citizen := &citizenmodels.Citizen{
		ID:              id.CitizenID(uuid.New()),
		FullName:        "Shanti Devi",
		HomeCoordinates: home,
		LifecycleStatus: citizenmodels.StatusActive,
		UpdatedAt:       s.now,
	}
	s.Require().NoError(s.citizens.Seed(s.ctx, citizen))
	return citizen
}

func (s *EngineSuite) seedVisit(citizenID id.CitizenID, status models.VisitStatus) *models.Visit {
	visit := &models.Visit{
		ID:          id.VisitID(uuid.New()),
		CitizenID:   citizenID,
		OfficerID:   id.OfficerID(uuid.New()),
		Status:      status,
		VisitType:   models.VisitTypeRoutine,
		ScheduledAt: s.now.Add(time.Hour),
		CreatedAt:   s.now.Add(-time.Hour),
		UpdatedAt:   s.now.Add(-time.Hour),
	}
	if status == models.VisitStatusInProgress {
		started := s.now.Add(-30 * time.Minute)
		visit.StartedAt = &started
	}
	s.Require().NoError(s.visits.Create(s.ctx, visit))
	return visit
}

func (s *EngineSuite) auditActions(visitID id.VisitID) []string {
	events, err := s.auditStore.ListByVisit(s.ctx, visitID)
	s.Require().NoError(err)
	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	return actions
}

func validAssessment() risk.Assessment {
	return risk.Assessment{
		AwareOfEmergencyNumbers: true,
		AloneTime:               risk.AloneRarely,
		HouseholdHelp:           risk.HelpVerified,
		CCTVNearby:              true,
		Mobility:                risk.FullyMobile,
		IllnessType:             risk.IllnessNone,
		PhysicalStatus:          risk.PhysicalGood,
		MentalStatus:            risk.MentalGood,
		FeelsSafeAtHome:         true,
	}
}

func (s *EngineSuite) TestCreate() {
	citizen := s.seedCitizen()
	officerID := id.OfficerID(uuid.New())

	s.Run("schedules a visit for an active citizen", func() {
		visit, err := s.engine.Create(s.ctx, CreateVisitParams{
			CitizenID:   citizen.ID,
			OfficerID:   officerID,
			VisitType:   models.VisitTypeRoutine,
			ScheduledAt: s.now.Add(48 * time.Hour),
		})
		s.Require().NoError(err)
		s.Equal(models.VisitStatusScheduled, visit.Status)
		s.Equal(s.now, visit.CreatedAt)
		s.Contains(s.auditActions(visit.ID), string(audit.EventVisitScheduled))
	})

	s.Run("rejects unknown citizen", func() {
		_, err := s.engine.Create(s.ctx, CreateVisitParams{
			CitizenID:   id.CitizenID(uuid.New()),
			OfficerID:   officerID,
			VisitType:   models.VisitTypeRoutine,
			ScheduledAt: s.now.Add(48 * time.Hour),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects zero scheduled time", func() {
		_, err := s.engine.Create(s.ctx, CreateVisitParams{
			CitizenID: citizen.ID,
			OfficerID: officerID,
			VisitType: models.VisitTypeRoutine,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects inactive citizen", func() {
		deceased := s.seedCitizen()
		deceased.LifecycleStatus = citizenmodels.StatusDeceased
		s.Require().NoError(s.citizens.Seed(s.ctx, deceased))

		_, err := s.engine.Create(s.ctx, CreateVisitParams{
			CitizenID:   deceased.ID,
			OfficerID:   officerID,
			VisitType:   models.VisitTypeRoutine,
			ScheduledAt: s.now.Add(48 * time.Hour),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EngineSuite) TestRequestStart() {
	s.Run("location within tolerance transitions to in_progress", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		started, err := s.engine.RequestStart(s.ctx, visit.ID, &nearHome, tolerance)
		s.Require().NoError(err)
		s.Equal(models.VisitStatusInProgress, started.Status)
		s.Require().NotNil(started.StartedAt)
		s.Equal(s.now, *started.StartedAt)
		s.Require().NotNil(started.Location)
		s.Equal(nearHome, *started.Location)
		s.Empty(started.OverrideReason)
		s.Contains(s.auditActions(visit.ID), string(audit.EventVisitStarted))
	})

	s.Run("location outside tolerance is rejected with distance detail", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		_, err := s.engine.RequestStart(s.ctx, visit.ID, &farAway, 200)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeGeofenceRejected))

		distance, ok := dErrors.Detail(err, "distance_meters")
		s.Require().True(ok)
		s.InDelta(5000, distance.(float64), 100)
		tol, ok := dErrors.Detail(err, "tolerance_meters")
		s.Require().True(ok)
		s.InDelta(200, tol.(float64), 0.001)

		unchanged, err := s.visits.FindByID(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Equal(models.VisitStatusScheduled, unchanged.Status, "rejection makes no state change")
		s.Nil(unchanged.StartedAt)
	})

	s.Run("missing location fix is unavailable, not a zero coordinate", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		_, err := s.engine.RequestStart(s.ctx, visit.ID, nil, tolerance)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeLocationUnavailable))
	})

	s.Run("malformed candidate fails with invalid coordinates", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		bad := geofence.Coordinates{Lat: 95, Lng: 77.2}
		_, err := s.engine.RequestStart(s.ctx, visit.ID, &bad, tolerance)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCoordinates))
	})

	s.Run("start is invalid from in_progress", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		_, err := s.engine.RequestStart(s.ctx, visit.ID, &nearHome, tolerance)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown visit returns not found", func() {
		s.seedCitizen()
		_, err := s.engine.RequestStart(s.ctx, id.VisitID(uuid.New()), &nearHome, tolerance)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("concurrent starts produce exactly one winner", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		const attempts = 8
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.engine.RequestStart(s.ctx, visit.ID, &nearHome, tolerance)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "losers observe the winner's write")
		}
		s.Equal(1, winners)
	})
}

func (s *EngineSuite) TestForceStart() {
	s.Run("bypasses the gate with an audited reason", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		started, err := s.engine.ForceStart(s.ctx, visit.ID, nil, "gps dead zone inside the building")
		s.Require().NoError(err)
		s.Equal(models.VisitStatusInProgress, started.Status)
		s.Equal("gps dead zone inside the building", started.OverrideReason)
		s.Nil(started.Location)

		actions := s.auditActions(visit.ID)
		s.Contains(actions, string(audit.EventGeofenceOverridden))
		s.Contains(actions, string(audit.EventVisitStarted))
	})

	s.Run("requires a reason", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		_, err := s.engine.ForceStart(s.ctx, visit.ID, &farAway, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("still validates the transition", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusCompleted)

		_, err := s.engine.ForceStart(s.ctx, visit.ID, nil, "late paperwork")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EngineSuite) TestComplete() {
	s.Run("scores the assessment exactly once and stores it", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		assessment := risk.Assessment{
			AloneTime:      risk.AloneOften,
			HouseholdHelp:  risk.HelpNone,
			CCTVNearby:     true,
			Mobility:       risk.LimitedMobility,
			IllnessType:    risk.IllnessChronic,
			PhysicalStatus: risk.PhysicalPoor,
			MentalStatus:   risk.MentalPoor,
		}
		completed, err := s.engine.Complete(s.ctx, visit.ID, CompleteParams{
			Assessment:      assessment,
			Location:        &nearHome,
			Notes:           "needs a follow-up within the month",
			DurationMinutes: 40,
		})
		s.Require().NoError(err)
		s.Equal(models.VisitStatusCompleted, completed.Status)
		s.Require().NotNil(completed.CompletedAt)
		s.Equal(s.now, *completed.CompletedAt)

		s.Require().NotNil(completed.RiskScore)
		s.Equal(75, *completed.RiskScore)
		s.Equal(risk.BandCritical, completed.RiskBand)
		s.Require().NotNil(completed.Assessment)
		s.Equal(assessment, *completed.Assessment)
		s.Equal(40, completed.DurationMinutes)
		s.Contains(s.auditActions(visit.ID), string(audit.EventVisitCompleted))
	})

	s.Run("never-started visit cannot complete", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		_, err := s.engine.Complete(s.ctx, visit.ID, CompleteParams{Assessment: validAssessment()})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		unchanged, err := s.visits.FindByID(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Equal(models.VisitStatusScheduled, unchanged.Status)
		s.Nil(unchanged.RiskScore)
	})

	s.Run("rejects an invalid assessment before touching state", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		bad := validAssessment()
		bad.AloneTime = "constantly"
		_, err := s.engine.Complete(s.ctx, visit.ID, CompleteParams{Assessment: bad})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects negative duration", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		_, err := s.engine.Complete(s.ctx, visit.ID, CompleteParams{
			Assessment:      validAssessment(),
			DurationMinutes: -5,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestCancel() {
	s.Run("cancels with reason from scheduled", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		cancelled, err := s.engine.Cancel(s.ctx, visit.ID, models.CancelCategoryCitizenRequest, "family travelling")
		s.Require().NoError(err)
		s.Equal(models.VisitStatusCancelled, cancelled.Status)
		s.Require().NotNil(cancelled.CancellationReason)
		s.Equal(models.CancelCategoryCitizenRequest, cancelled.CancellationReason.Category)
		s.Equal("family travelling", cancelled.CancellationReason.Notes)
	})

	s.Run("is idempotent on retries", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		first, err := s.engine.Cancel(s.ctx, visit.ID, models.CancelCategoryOther, "dup test")
		s.Require().NoError(err)

		second, err := s.engine.Cancel(s.ctx, visit.ID, models.CancelCategoryCitizenRequest, "different reason")
		s.Require().NoError(err, "second cancel returns the existing record, no error")
		s.Equal(first.Status, second.Status)
		s.Equal(first.CancellationReason, second.CancellationReason, "retry does not overwrite the original reason")
		s.Equal(first.Version, second.Version)

		events, err := s.auditStore.ListByVisit(s.ctx, visit.ID)
		s.Require().NoError(err)
		cancelEvents := 0
		for _, e := range events {
			if e.Action == string(audit.EventVisitCancelled) {
				cancelEvents++
			}
		}
		s.Equal(1, cancelEvents, "retry emits no duplicate audit event")
	})

	s.Run("completed visit cannot be cancelled", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusCompleted)

		_, err := s.engine.Cancel(s.ctx, visit.ID, models.CancelCategoryOther, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EngineSuite) TestReschedule() {
	s.Run("edits scheduled_at in place and appends history", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)
		newTime := s.now.Add(96 * time.Hour)

		updated, err := s.engine.Reschedule(s.ctx, visit.ID, newTime, "citizen asked for the weekend")
		s.Require().NoError(err)
		s.Equal(models.VisitStatusScheduled, updated.Status, "no status change")
		s.Equal(newTime, updated.ScheduledAt)

		history, err := s.engine.RescheduleHistory(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal(visit.ScheduledAt, history[0].From)
		s.Equal(newTime, history[0].To)
		s.Equal("citizen asked for the weekend", history[0].Notes)

		s.Contains(s.auditActions(visit.ID), string(audit.EventVisitRescheduled))
	})

	s.Run("history accumulates across reschedules", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		_, err := s.engine.Reschedule(s.ctx, visit.ID, s.now.Add(48*time.Hour), "")
		s.Require().NoError(err)
		_, err = s.engine.Reschedule(s.ctx, visit.ID, s.now.Add(72*time.Hour), "")
		s.Require().NoError(err)

		history, err := s.engine.RescheduleHistory(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Len(history, 2, "history is append-only, never overwritten")
		s.Equal(history[0].To, history[1].From)
	})

	s.Run("in-progress visit cannot be rescheduled", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		_, err := s.engine.Reschedule(s.ctx, visit.ID, s.now.Add(48*time.Hour), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EngineSuite) TestReportException() {
	s.Run("not available cancels with the matching category", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		cancelled, err := s.engine.ReportException(s.ctx, visit.ID, models.ExceptionNotAvailable, "no answer at the door")
		s.Require().NoError(err)
		s.Equal(models.VisitStatusCancelled, cancelled.Status)
		s.Require().NotNil(cancelled.CancellationReason)
		s.Equal(models.CancelCategoryNotAvailable, cancelled.CancellationReason.Category)

		// Citizen is untouched on the not-available path.
		after, err := s.citizens.FindByID(s.ctx, citizen.ID)
		s.Require().NoError(err)
		s.Equal(citizenmodels.StatusActive, after.LifecycleStatus)
	})

	s.Run("deceased mutates both visit and citizen", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusInProgress)

		cancelled, err := s.engine.ReportException(s.ctx, visit.ID, models.ExceptionDeceased, "confirmed by family")
		s.Require().NoError(err)
		s.Equal(models.VisitStatusCancelled, cancelled.Status)
		s.Require().NotNil(cancelled.CancellationReason)
		s.Equal(models.CancelCategoryDeceased, cancelled.CancellationReason.Category)

		after, err := s.citizens.FindByID(s.ctx, citizen.ID)
		s.Require().NoError(err)
		s.Equal(citizenmodels.StatusDeceased, after.LifecycleStatus)

		s.Contains(s.auditActions(visit.ID), string(audit.EventCitizenDeceasedReported))
	})

	s.Run("rejects unknown kind", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusScheduled)

		_, err := s.engine.ReportException(s.ctx, visit.ID, models.ExceptionKind("abducted"), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("deceased on a completed visit is invalid", func() {
		citizen := s.seedCitizen()
		visit := s.seedVisit(citizen.ID, models.VisitStatusCompleted)

		_, err := s.engine.ReportException(s.ctx, visit.ID, models.ExceptionDeceased, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		after, err := s.citizens.FindByID(s.ctx, citizen.ID)
		s.Require().NoError(err)
		s.Equal(citizenmodels.StatusActive, after.LifecycleStatus, "failed report leaves the citizen untouched")
	})
}

// TestDeceasedRollback injects a citizen store failure after the visit
// cancel succeeded and verifies the compensating reversal restores the
// visit, so neither resource ends up mutated.
func TestDeceasedRollback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	visits := visitstore.NewInMemory()
	citizens := mocks.NewMockCitizenStore(ctrl)
	engine := NewEngine(visits, citizens)

	visit := &models.Visit{
		ID:          id.VisitID(uuid.New()),
		CitizenID:   id.CitizenID(uuid.New()),
		OfficerID:   id.OfficerID(uuid.New()),
		Status:      models.VisitStatusInProgress,
		VisitType:   models.VisitTypeRoutine,
		ScheduledAt: now.Add(-time.Hour),
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-time.Hour),
	}
	if err := visits.Create(ctx, visit); err != nil {
		t.Fatalf("seed visit: %v", err)
	}

	citizens.EXPECT().
		Execute(gomock.Any(), visit.CitizenID, gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodePersistence, "citizen write failed"))

	_, err := engine.ReportException(ctx, visit.ID, models.ExceptionDeceased, "confirmed by family")
	if err == nil {
		t.Fatal("expected error from failed citizen write")
	}
	if !dErrors.HasCode(err, dErrors.CodePersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}

	restored, err := visits.FindByID(ctx, visit.ID)
	if err != nil {
		t.Fatalf("find visit: %v", err)
	}
	if restored.Status != models.VisitStatusInProgress {
		t.Fatalf("visit status = %s, want the pre-report status restored", restored.Status)
	}
	if restored.CancellationReason != nil {
		t.Fatal("cancellation reason must be rolled back")
	}
}

// TestDeceasedReconciliationEvent drives both the citizen write and the
// compensating reversal to failure and verifies the inconsistency is
// flagged as a reconciliation event rather than silently dropped.
func TestDeceasedReconciliationEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	visits := mocks.NewMockVisitStore(ctrl)
	citizens := mocks.NewMockCitizenStore(ctrl)
	auditStore := auditmemory.NewInMemoryStore()
	engine := NewEngine(visits, citizens,
		WithAuditPublisher(publisher.NewPublisher(auditStore)),
	)

	visitID := id.VisitID(uuid.New())
	citizenID := id.CitizenID(uuid.New())
	cancelled := &models.Visit{
		ID:        visitID,
		CitizenID: citizenID,
		OfficerID: id.OfficerID(uuid.New()),
		Status:    models.VisitStatusCancelled,
	}

	// First Execute cancels the visit; the compensating second Execute
	// fails, leaving the stores inconsistent.
	first := visits.EXPECT().
		Execute(gomock.Any(), visitID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.VisitID, validate func(*models.Visit) error, _ func(*models.Visit)) (*models.Visit, error) {
			prior := &models.Visit{ID: visitID, CitizenID: citizenID, Status: models.VisitStatusInProgress}
			if err := validate(prior); err != nil {
				return nil, err
			}
			return cancelled, nil
		})
	visits.EXPECT().
		Execute(gomock.Any(), visitID, gomock.Any(), gomock.Any()).
		After(first).
		Return(nil, dErrors.New(dErrors.CodePersistence, "reversal failed"))

	citizens.EXPECT().
		Execute(gomock.Any(), citizenID, gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodePersistence, "citizen write failed"))

	_, err := engine.ReportException(ctx, visitID, models.ExceptionDeceased, "")
	if err == nil {
		t.Fatal("expected error from failed citizen write")
	}

	events, err := auditStore.ListByVisit(ctx, visitID)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	found := false
	for _, e := range events {
		if e.Action == string(audit.EventReconciliationFailed) {
			found = true
			if e.Category != audit.CategorySecurity {
				t.Fatalf("reconciliation event category = %s, want security", e.Category)
			}
		}
	}
	if !found {
		t.Fatal("expected a reconciliation event after failed reversal")
	}
}

// boundaryTx wraps the in-memory write boundary and marks the context it
// hands to the closure, so a test can tell whether an audit write happened
// inside the same unit of work as the visit mutation.
type boundaryKey struct{}

type boundaryTx struct {
	inner StoreTx
}

func (b *boundaryTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return b.inner.RunInTx(ctx, func(txCtx context.Context) error {
		return fn(context.WithValue(txCtx, boundaryKey{}, true))
	})
}

type boundaryPublisher struct {
	mu     sync.Mutex
	inside map[string]bool
}

func (p *boundaryPublisher) Emit(ctx context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inside == nil {
		p.inside = make(map[string]bool)
	}
	p.inside[event.Action] = ctx.Value(boundaryKey{}) != nil
	return nil
}

// TestAuditEmissionJoinsWriteBoundary verifies that every lifecycle
// transition publishes its audit events from inside the store write
// boundary. A crash between the mutation committing and the event landing
// must not be possible, so the emit has to share the mutation's context.
func TestAuditEmissionJoinsWriteBoundary(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	visits := visitstore.NewInMemory()
	citizens := citizenstore.NewInMemory()
	pub := &boundaryPublisher{}
	engine := NewEngine(visits, citizens,
		WithAuditPublisher(pub),
		WithStoreTx(&boundaryTx{inner: newInMemoryStoreTx()}),
	)

	citizen := &citizenmodels.Citizen{
		ID:              id.CitizenID(uuid.New()),
		FullName:        "Shanti Devi",
		HomeCoordinates: home,
		LifecycleStatus: citizenmodels.StatusActive,
		UpdatedAt:       now,
	}
	if err := citizens.Seed(ctx, citizen); err != nil {
		t.Fatalf("seed citizen: %v", err)
	}

	created, err := engine.Create(ctx, CreateVisitParams{
		CitizenID:   citizen.ID,
		OfficerID:   id.OfficerID(uuid.New()),
		VisitType:   models.VisitTypeRoutine,
		ScheduledAt: now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Reschedule(ctx, created.ID, now.Add(48*time.Hour), "moved"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if _, err := engine.RequestStart(ctx, created.ID, &nearHome, tolerance); err != nil {
		t.Fatalf("request start: %v", err)
	}
	if _, err := engine.Complete(ctx, created.ID, CompleteParams{Assessment: validAssessment()}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	forced := &models.Visit{
		ID:          id.VisitID(uuid.New()),
		CitizenID:   citizen.ID,
		OfficerID:   id.OfficerID(uuid.New()),
		Status:      models.VisitStatusScheduled,
		VisitType:   models.VisitTypeRoutine,
		ScheduledAt: now.Add(time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := visits.Create(ctx, forced); err != nil {
		t.Fatalf("seed visit: %v", err)
	}
	if _, err := engine.ForceStart(ctx, forced.ID, nil, "gps dead zone"); err != nil {
		t.Fatalf("force start: %v", err)
	}
	if _, err := engine.ReportException(ctx, forced.ID, models.ExceptionDeceased, "confirmed by family"); err != nil {
		t.Fatalf("report exception: %v", err)
	}

	want := []audit.AuditEvent{
		audit.EventVisitScheduled,
		audit.EventVisitRescheduled,
		audit.EventVisitStarted,
		audit.EventVisitCompleted,
		audit.EventGeofenceOverridden,
		audit.EventVisitCancelled,
		audit.EventCitizenDeceasedReported,
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, action := range want {
		inside, seen := pub.inside[string(action)]
		if !seen {
			t.Errorf("%s was never published", action)
			continue
		}
		if !inside {
			t.Errorf("%s was published outside the write boundary", action)
		}
	}
}
