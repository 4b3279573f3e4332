package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/lendinglib-backend/api/middleware"
	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/feed"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
)

type testFeedService struct {
	viewer    feed.Viewer
	dismissed uuid.UUID
}

func (s *testFeedService) View(_ context.Context, viewer feed.Viewer) (feed.View, error) {
	s.viewer = viewer
	if !feed.CanView(viewer.Role) {
		return feed.View{}, pkgerrors.New(pkgerrors.CodeForbidden, "conflict feed requires staff access")
	}
	return feed.View{Stats: feed.Stats{TotalFlagged: 2, Urgent: 1}}, nil
}

func (s *testFeedService) Refresh(ctx context.Context, viewer feed.Viewer) (feed.View, availability.Result, error) {
	view, err := s.View(ctx, viewer)
	return view, availability.Result{Checked: 3}, err
}

func (s *testFeedService) Dismiss(_ context.Context, viewer feed.Viewer, id uuid.UUID) error {
	s.viewer = viewer
	s.dismissed = id
	return nil
}

func withCaller(req *http.Request, userID string, role enums.MemberRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID)
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestConflictFeed(t *testing.T) {
	svc := &testFeedService{}
	resp := httptest.NewRecorder()
	ConflictFeed(svc, testLogger())(resp, withCaller(newRequest(http.MethodGet, "/", "", nil), "u1", enums.MemberRoleStaff))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if svc.viewer.UserID != "u1" || svc.viewer.Role != enums.MemberRoleStaff {
		t.Fatalf("unexpected viewer %+v", svc.viewer)
	}
	var data feed.View
	decodeData(t, resp, &data)
	if data.Stats.TotalFlagged != 2 || data.Stats.Urgent != 1 {
		t.Fatalf("unexpected stats %+v", data.Stats)
	}

	resp = httptest.NewRecorder()
	ConflictFeed(svc, testLogger())(resp, withCaller(newRequest(http.MethodGet, "/", "", nil), "u2", enums.MemberRoleVolunteer))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRefreshConflicts(t *testing.T) {
	svc := &testFeedService{}
	resp := httptest.NewRecorder()
	RefreshConflicts(svc, testLogger())(resp, withCaller(newRequest(http.MethodPost, "/", "", nil), "u1", enums.MemberRoleAdmin))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var data struct {
		Reconcile availability.Result `json:"reconcile"`
	}
	decodeData(t, resp, &data)
	if data.Reconcile.Checked != 3 {
		t.Fatalf("unexpected payload %+v", data)
	}
}

func TestDismissConflict(t *testing.T) {
	svc := &testFeedService{}
	id := uuid.New()
	req := withCaller(newRequest(http.MethodPost, "/", "", map[string]string{"reservationId": id.String()}), "u1", enums.MemberRoleStaff)
	resp := httptest.NewRecorder()
	DismissConflict(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if svc.dismissed != id {
		t.Fatalf("expected %s dismissed, got %s", id, svc.dismissed)
	}
}
