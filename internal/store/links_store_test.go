package store

import (
	"context"
	"testing"

	"github.com/panelbridge/surveylink/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
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
	return New(db)
}

func seedProject(t *testing.T, st *Store) *models.Project {
	t.Helper()
	project := &models.Project{Name: "Consumer Panel Q3", SurveyURL: "https://x.example.com/survey"}
	if err := st.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return project
}

func TestCreateSurveyLink_Validation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.CreateSurveyLink(ctx, &models.SurveyLink{UID: "abc"})
	if KindOf(err) != KindValidation {
		t.Errorf("missing project id: kind = %s, expected validation", KindOf(err))
	}

	err = st.CreateSurveyLink(ctx, &models.SurveyLink{ProjectID: 1})
	if KindOf(err) != KindValidation {
		t.Errorf("missing uid: kind = %s, expected validation", KindOf(err))
	}
}

func TestCreateSurveyLink_DuplicateUIDIsConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	first := &models.SurveyLink{ProjectID: project.ID, UID: "dup", LinkType: models.LinkTypeLive, Status: models.StatusUnused}
	if err := st.CreateSurveyLink(ctx, first); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	second := &models.SurveyLink{ProjectID: project.ID, UID: "dup", LinkType: models.LinkTypeLive, Status: models.StatusUnused}
	err := st.CreateSurveyLink(ctx, second)
	if !IsConflict(err) {
		t.Errorf("duplicate uid: err = %v, expected conflict", err)
	}
}

func TestCreateSurveyLink_SameUIDDifferentProjects(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p1 := seedProject(t, st)
	p2 := &models.Project{Name: "Other", SurveyURL: "https://y.example.com"}
	if err := st.CreateProject(ctx, p2); err != nil {
		t.Fatalf("failed to seed second project: %v", err)
	}

	// uid uniqueness is per project, not global
	a := &models.SurveyLink{ProjectID: p1.ID, UID: "shared", LinkType: models.LinkTypeLive, Status: models.StatusUnused}
	b := &models.SurveyLink{ProjectID: p2.ID, UID: "shared", LinkType: models.LinkTypeLive, Status: models.StatusUnused}
	if err := st.CreateSurveyLink(ctx, a); err != nil {
		t.Fatalf("project 1 create failed: %v", err)
	}
	if err := st.CreateSurveyLink(ctx, b); err != nil {
		t.Errorf("same uid in another project should be allowed, got %v", err)
	}
}

func TestGetSurveyLinkByUID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	created := &models.SurveyLink{ProjectID: project.ID, UID: "findme", LinkType: models.LinkTypeTest, Status: models.StatusUnused}
	if err := st.CreateSurveyLink(ctx, created); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := st.GetSurveyLinkByUID(ctx, project.ID, "findme")
	if err != nil {
		t.Fatalf("GetSurveyLinkByUID failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got link %d, expected %d", got.ID, created.ID)
	}

	_, err = st.GetSurveyLinkByUID(ctx, project.ID, "missing")
	if !IsNotFound(err) {
		t.Errorf("missing uid: err = %v, expected not found", err)
	}
}

func TestListSurveyLinks_Filters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)
	vendorID := uint(5)

	links := []models.SurveyLink{
		{ProjectID: project.ID, UID: "a1", LinkType: models.LinkTypeTest, Status: models.StatusUnused},
		{ProjectID: project.ID, UID: "a2", LinkType: models.LinkTypeLive, Status: models.StatusUnused, VendorID: &vendorID},
		{ProjectID: project.ID, UID: "a3", LinkType: models.LinkTypeLive, Status: models.StatusCompleted, VendorID: &vendorID},
	}
	for i := range links {
		if err := st.CreateSurveyLink(ctx, &links[i]); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	_, total, err := st.ListSurveyLinks(ctx, LinkFilter{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, expected 3", total)
	}

	live, _, err := st.ListSurveyLinks(ctx, LinkFilter{ProjectID: project.ID, LinkType: models.LinkTypeLive})
	if err != nil {
		t.Fatalf("list by type failed: %v", err)
	}
	if len(live) != 2 {
		t.Errorf("live links = %d, expected 2", len(live))
	}

	completed, _, err := st.ListSurveyLinks(ctx, LinkFilter{ProjectID: project.ID, Status: models.StatusCompleted})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if len(completed) != 1 || completed[0].UID != "a3" {
		t.Errorf("completed links = %v, expected just a3", completed)
	}

	byVendor, _, err := st.ListSurveyLinks(ctx, LinkFilter{ProjectID: project.ID, VendorID: vendorID})
	if err != nil {
		t.Fatalf("list by vendor failed: %v", err)
	}
	if len(byVendor) != 2 {
		t.Errorf("vendor links = %d, expected 2", len(byVendor))
	}
}

func TestListSurveyLinks_BatchIDFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	inBatch := models.SurveyLink{ProjectID: project.ID, UID: "b1", LinkType: models.LinkTypeLive, Status: models.StatusUnused}
	inBatch.SetMetadata(models.LinkMetadata{BatchID: "batch-7"})
	other := models.SurveyLink{ProjectID: project.ID, UID: "b2", LinkType: models.LinkTypeLive, Status: models.StatusUnused}
	other.SetMetadata(models.LinkMetadata{BatchID: "batch-8"})

	for _, link := range []*models.SurveyLink{&inBatch, &other} {
		if err := st.CreateSurveyLink(ctx, link); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	got, total, err := st.ListSurveyLinks(ctx, LinkFilter{ProjectID: project.ID, BatchID: "batch-7"})
	if err != nil {
		t.Fatalf("list by batch failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].UID != "b1" {
		t.Errorf("batch filter returned %d links, expected just b1", len(got))
	}
}

func TestListSurveyLinks_Pagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	for _, uid := range []string{"p1", "p2", "p3", "p4", "p5"} {
		link := &models.SurveyLink{ProjectID: project.ID, UID: uid, LinkType: models.LinkTypeLive, Status: models.StatusUnused}
		if err := st.CreateSurveyLink(ctx, link); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	page2, total, err := st.ListSurveyLinks(ctx, LinkFilter{ProjectID: project.ID, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("paginated list failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, expected unpaginated count 5", total)
	}
	if len(page2) != 2 || page2[0].UID != "p3" {
		t.Errorf("page 2 = %v, expected p3, p4", page2)
	}
}

func TestCountLinksByStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	statuses := []models.LinkStatus{
		models.StatusUnused, models.StatusUnused,
		models.StatusCompleted,
		models.StatusDisqualified,
	}
	for i, status := range statuses {
		link := &models.SurveyLink{ProjectID: project.ID, UID: string(rune('a' + i)), LinkType: models.LinkTypeLive, Status: status}
		if err := st.CreateSurveyLink(ctx, link); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	counts, err := st.CountLinksByStatus(ctx, project.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}

	byStatus := make(map[models.LinkStatus]int64)
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	if byStatus[models.StatusUnused] != 2 || byStatus[models.StatusCompleted] != 1 || byStatus[models.StatusDisqualified] != 1 {
		t.Errorf("status counts = %v", byStatus)
	}
}
