package services

import (
	"context"
	"testing"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Project{},
		&models.Vendor{},
		&models.ProjectVendor{},
		&models.Question{},
		&models.SurveyLink{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return store.New(db)
}

func seedLinkWithStatus(t *testing.T, st *store.Store, status models.LinkStatus) (*models.Project, *models.SurveyLink) {
	t.Helper()
	ctx := context.Background()

	project := &models.Project{Name: "QC Panel", SurveyURL: "https://x.example.com/survey"}
	if err := st.CreateProject(ctx, project); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}

	link := &models.SurveyLink{
		ProjectID: project.ID,
		UID:       "qc-" + string(status),
		RespID:    "qc-" + string(status),
		LinkType:  models.LinkTypeLive,
		Status:    status,
	}
	if status == models.StatusFlagged {
		link.SetMetadata(models.LinkMetadata{
			FlagReason:   "suspicious completion time",
			ReviewStatus: models.ReviewPending,
		})
	}
	if err := st.CreateSurveyLink(ctx, link); err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}
	return project, link
}

func TestUpdateFlagStatus_ApproveFlagged(t *testing.T) {
	st := newTestStore(t)
	_, link := seedLinkWithStatus(t, st, models.StatusFlagged)
	svc := NewQCService(st)

	updated, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
		LinkID:   link.ID,
		Decision: models.ReviewApproved,
	}, "reviewer1")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if updated.Status != models.StatusCompleted {
		t.Errorf("status = %s, expected COMPLETED", updated.Status)
	}
	meta := updated.DecodeMetadata()
	if meta.ReviewStatus != models.ReviewApproved {
		t.Errorf("ReviewStatus = %q, expected APPROVED", meta.ReviewStatus)
	}
	if meta.ReviewedBy != "reviewer1" {
		t.Errorf("ReviewedBy = %q, expected reviewer1", meta.ReviewedBy)
	}
	if meta.ReviewedAt == nil || meta.CompletedAt == nil {
		t.Error("review and completion timestamps should be set")
	}
	if meta.FlagReason != "suspicious completion time" {
		t.Error("flag reason must survive the review merge")
	}
}

func TestUpdateFlagStatus_ApproveDisqualified(t *testing.T) {
	st := newTestStore(t)
	_, link := seedLinkWithStatus(t, st, models.StatusDisqualified)
	svc := NewQCService(st)

	updated, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
		LinkID:   link.ID,
		Decision: models.ReviewApproved,
	}, "reviewer1")
	if err != nil {
		t.Fatalf("approve of disqualified link failed: %v", err)
	}
	if updated.Status != models.StatusCompleted {
		t.Errorf("status = %s, expected COMPLETED", updated.Status)
	}
}

func TestUpdateFlagStatus_ApproveRejectsOtherStates(t *testing.T) {
	for _, status := range []models.LinkStatus{
		models.StatusUnused,
		models.StatusInProgress,
		models.StatusCompleted,
	} {
		st := newTestStore(t)
		_, link := seedLinkWithStatus(t, st, status)
		svc := NewQCService(st)

		_, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
			LinkID:   link.ID,
			Decision: models.ReviewApproved,
		}, "reviewer1")
		if err == nil {
			t.Errorf("approving a %s link should be rejected", status)
			continue
		}
		if appErr, ok := err.(*response.AppError); !ok || appErr.HTTPStatus != 409 {
			t.Errorf("approving a %s link: err = %v, expected conflict", status, err)
		}
	}
}

func TestUpdateFlagStatus_RejectAnyState(t *testing.T) {
	for _, status := range []models.LinkStatus{
		models.StatusUnused,
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusFlagged,
		models.StatusDisqualified,
	} {
		st := newTestStore(t)
		_, link := seedLinkWithStatus(t, st, status)
		svc := NewQCService(st)

		updated, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
			LinkID:   link.ID,
			Decision: models.ReviewRejected,
		}, "reviewer1")
		if err != nil {
			t.Errorf("rejecting a %s link failed: %v", status, err)
			continue
		}
		if updated.Status != models.StatusDisqualified {
			t.Errorf("rejecting a %s link: status = %s, expected DISQUALIFIED", status, updated.Status)
		}
	}
}

func TestUpdateFlagStatus_InvalidDecision(t *testing.T) {
	st := newTestStore(t)
	_, link := seedLinkWithStatus(t, st, models.StatusFlagged)
	svc := NewQCService(st)

	_, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
		LinkID:   link.ID,
		Decision: "MAYBE",
	}, "reviewer1")
	if err == nil {
		t.Fatal("unknown decision should be rejected")
	}
}

func TestUpdateFlagStatus_ByProjectAndUID(t *testing.T) {
	st := newTestStore(t)
	project, link := seedLinkWithStatus(t, st, models.StatusFlagged)
	svc := NewQCService(st)

	updated, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
		ProjectID: project.ID,
		UID:       link.UID,
		Decision:  models.ReviewApproved,
	}, "reviewer2")
	if err != nil {
		t.Fatalf("lookup by project+uid failed: %v", err)
	}
	if updated.ID != link.ID {
		t.Errorf("resolved link %d, expected %d", updated.ID, link.ID)
	}
}

func TestUpdateFlagStatus_MissingLink(t *testing.T) {
	st := newTestStore(t)
	svc := NewQCService(st)

	_, err := svc.UpdateFlagStatus(context.Background(), &UpdateFlagStatusRequest{
		LinkID:   999,
		Decision: models.ReviewApproved,
	}, "reviewer1")
	if err == nil {
		t.Fatal("missing link should be an error")
	}
	if appErr, ok := err.(*response.AppError); !ok || appErr.HTTPStatus != 404 {
		t.Errorf("err = %v, expected not found", err)
	}
}
