package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/sharedtable/fare/internal/auth"
	"github.com/sharedtable/fare/internal/events"
	"github.com/sharedtable/fare/internal/matching"
	"github.com/sharedtable/fare/internal/middleware"
	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/partition"
	"github.com/sharedtable/fare/internal/storage/sqlite"
	"github.com/sharedtable/fare/pkg/api"
)

const operatorEmail = "ops@sharedtable.test"

type testClients struct {
	auth     *api.AuthServiceClient
	slots    *api.SlotServiceClient
	matching *api.MatchingServiceClient
	events   *events.Recorder
	store    *sqlite.SQLiteStore
}

// setupTestServer wires all three services the way cmd/server does.
func setupTestServer(t *testing.T) (*testClients, func()) {
	t.Helper()

	// Create temp database
	tmpFile, err := os.CreateTemp("", "fare-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := store.SeedRestaurants(context.Background(), []*models.Restaurant{
		{Name: "Nopalito", Address: "306 Broderick St"},
	}); err != nil {
		t.Fatalf("failed to seed restaurants: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("service-test-secret", time.Hour)
	authn := auth.NewPasswordAuthenticator(store, operatorEmail)
	recorder := &events.Recorder{}
	matcher := matching.New(store, partition.DefaultPolicyTable(), recorder, matching.WithLogger(logger))

	logging := middleware.LoggingInterceptor(logger)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(authn, jwtManager, logger),
		connect.WithInterceptors(logging),
	))
	mux.Handle(api.NewSlotServiceHandler(
		NewSlotService(store, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), logging),
	))
	mux.Handle(api.NewMatchingServiceHandler(
		NewMatchingService(matcher, logger),
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager),
			middleware.RequireRole(models.RoleOperator),
			logging,
		),
	))

	server := httptest.NewServer(mux)

	clients := &testClients{
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
		slots:    api.NewSlotServiceClient(http.DefaultClient, server.URL),
		matching: api.NewMatchingServiceClient(http.DefaultClient, server.URL),
		events:   recorder,
		store:    store,
	}

	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return clients, cleanup
}

func register(t *testing.T, c *testClients, email, name string) string {
	t.Helper()

	resp, err := c.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: name,
		Password:    "long enough password",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp.Msg.Token
}

func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (%v)", got, want, err)
	}
}

func TestAuthService(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	resp, err := c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email:       "Diner@Example.com",
		DisplayName: "Dana",
		Password:    "long enough password",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Msg.Token == "" {
		t.Error("expected a token")
	}
	if resp.Msg.User.Email != "diner@example.com" || resp.Msg.User.Role != string(models.RoleDiner) {
		t.Errorf("unexpected user: %+v", resp.Msg.User)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email: "diner@example.com", DisplayName: "Again", Password: "long enough password",
		}))
		assertCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email: "weak@example.com", DisplayName: "Weak", Password: "short",
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("login", func(t *testing.T) {
		login, err := c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
			Email: "diner@example.com", Password: "long enough password",
		}))
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if login.Msg.User.ID != resp.Msg.User.ID {
			t.Errorf("login user = %s, want %s", login.Msg.User.ID, resp.Msg.User.ID)
		}
	})

	t.Run("bad password", func(t *testing.T) {
		_, err := c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
			Email: "diner@example.com", Password: "not the password",
		}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("operator email", func(t *testing.T) {
		op, err := c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email: operatorEmail, DisplayName: "Ops", Password: "long enough password",
		}))
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if op.Msg.User.Role != string(models.RoleOperator) {
			t.Errorf("role = %s, want operator", op.Msg.User.Role)
		}
	})
}

func TestSlotService(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	opToken := register(t, c, operatorEmail, "Ops")
	dinerToken := register(t, c, "diner@example.com", "Dana")
	otherToken := register(t, c, "other@example.com", "Olly")

	t.Run("CreateTimeSlot requires operator", func(t *testing.T) {
		msg := &api.CreateTimeSlotRequest{Date: "2026-11-06", Time: "19:00", DinnerType: "regular"}

		_, err := c.slots.CreateTimeSlot(ctx, withToken(msg, ""))
		assertCode(t, err, connect.CodeUnauthenticated)

		_, err = c.slots.CreateTimeSlot(ctx, withToken(msg, dinerToken))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("CreateTimeSlot validation", func(t *testing.T) {
		tests := []struct {
			name string
			msg  api.CreateTimeSlotRequest
		}{
			{"unknown dinner type", api.CreateTimeSlotRequest{Date: "2026-11-06", Time: "19:00", DinnerType: "brunch"}},
			{"bad date", api.CreateTimeSlotRequest{Date: "11/06/2026", Time: "19:00", DinnerType: "regular"}},
			{"bad time", api.CreateTimeSlotRequest{Date: "2026-11-06", Time: "7pm", DinnerType: "regular"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := c.slots.CreateTimeSlot(ctx, withToken(&tt.msg, opToken))
				assertCode(t, err, connect.CodeInvalidArgument)
			})
		}
	})

	created, err := c.slots.CreateTimeSlot(ctx, withToken(&api.CreateTimeSlotRequest{
		Date: "2026-11-06", Time: "19:00", DinnerType: " Regular ",
	}, opToken))
	if err != nil {
		t.Fatalf("CreateTimeSlot failed: %v", err)
	}
	slot := created.Msg.TimeSlot
	if slot.DinnerType != "regular" || slot.Status != string(models.TimeSlotOpen) {
		t.Errorf("unexpected slot: %+v", slot)
	}

	t.Run("ListTimeSlots", func(t *testing.T) {
		resp, err := c.slots.ListTimeSlots(ctx, connect.NewRequest(&api.ListTimeSlotsRequest{Status: "open"}))
		if err != nil {
			t.Fatalf("ListTimeSlots failed: %v", err)
		}
		if len(resp.Msg.TimeSlots) != 1 || resp.Msg.TimeSlots[0].ID != slot.ID {
			t.Errorf("unexpected slots: %+v", resp.Msg.TimeSlots)
		}

		_, err = c.slots.ListTimeSlots(ctx, connect.NewRequest(&api.ListTimeSlotsRequest{Status: "pending"}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("CreateSignup requires a caller", func(t *testing.T) {
		_, err := c.slots.CreateSignup(ctx, withToken(&api.CreateSignupRequest{TimeSlotID: slot.ID}, ""))
		assertCode(t, err, connect.CodeUnauthenticated)

		_, err = c.slots.CreateSignup(ctx, withToken(&api.CreateSignupRequest{TimeSlotID: "missing"}, dinerToken))
		assertCode(t, err, connect.CodeNotFound)
	})

	signup, err := c.slots.CreateSignup(ctx, withToken(&api.CreateSignupRequest{
		TimeSlotID:         slot.ID,
		DietaryRestriction: "vegetarian",
	}, dinerToken))
	if err != nil {
		t.Fatalf("CreateSignup failed: %v", err)
	}
	if signup.Msg.Signup.Status != string(models.SignupPending) || signup.Msg.Signup.DietaryRestriction != "vegetarian" {
		t.Errorf("unexpected signup: %+v", signup.Msg.Signup)
	}

	t.Run("CreateSignup rejects a second signup", func(t *testing.T) {
		_, err := c.slots.CreateSignup(ctx, withToken(&api.CreateSignupRequest{TimeSlotID: slot.ID}, dinerToken))
		assertCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("CancelSignup", func(t *testing.T) {
		req := &api.CancelSignupRequest{SignupID: signup.Msg.Signup.ID}

		_, err := c.slots.CancelSignup(ctx, withToken(req, otherToken))
		assertCode(t, err, connect.CodePermissionDenied)

		resp, err := c.slots.CancelSignup(ctx, withToken(req, dinerToken))
		if err != nil {
			t.Fatalf("CancelSignup failed: %v", err)
		}
		if resp.Msg.Signup.Status != string(models.SignupCancelled) {
			t.Errorf("status = %s, want cancelled", resp.Msg.Signup.Status)
		}

		_, err = c.slots.CancelSignup(ctx, withToken(req, dinerToken))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("ListGroups", func(t *testing.T) {
		resp, err := c.slots.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{TimeSlotID: slot.ID}))
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(resp.Msg.Groups) != 0 {
			t.Errorf("expected no groups, got %d", len(resp.Msg.Groups))
		}

		_, err = c.slots.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{TimeSlotID: "missing"}))
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestMatchingService(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	opToken := register(t, c, operatorEmail, "Ops")
	dinerToken := register(t, c, "diner@example.com", "Dana")

	created, err := c.slots.CreateTimeSlot(ctx, withToken(&api.CreateTimeSlotRequest{
		Date: "2026-11-07", Time: "20:00", DinnerType: "regular",
	}, opToken))
	if err != nil {
		t.Fatalf("CreateTimeSlot failed: %v", err)
	}
	slotID := created.Msg.TimeSlot.ID

	// Eleven signups from distinct users, in a fixed order.
	for i := range 11 {
		s := &models.Signup{TimeSlotID: slotID, UserID: "user-" + string(rune('a'+i)), SignedUpAt: int64(100 + i)}
		if err := c.store.CreateSignup(ctx, s); err != nil {
			t.Fatalf("CreateSignup failed: %v", err)
		}
	}

	t.Run("requires operator", func(t *testing.T) {
		_, err := c.matching.ListPolicies(ctx, withToken(&api.ListPoliciesRequest{}, ""))
		assertCode(t, err, connect.CodeUnauthenticated)

		_, err = c.matching.ListPolicies(ctx, withToken(&api.ListPoliciesRequest{}, dinerToken))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("ListPolicies", func(t *testing.T) {
		resp, err := c.matching.ListPolicies(ctx, withToken(&api.ListPoliciesRequest{}, opToken))
		if err != nil {
			t.Fatalf("ListPolicies failed: %v", err)
		}
		if len(resp.Msg.Policies) != 2 {
			t.Fatalf("policies = %d, want 2", len(resp.Msg.Policies))
		}
		singles, regular := resp.Msg.Policies[0], resp.Msg.Policies[1]
		if singles.DinnerType != "singles" || singles.Min != 2 || singles.Max != 2 || singles.Ideal != 2 {
			t.Errorf("singles = %+v", singles)
		}
		if regular.DinnerType != "regular" || regular.Min != 4 || regular.Max != 6 || regular.Ideal != 5 {
			t.Errorf("regular = %+v", regular)
		}
	})

	t.Run("PreviewMatching", func(t *testing.T) {
		resp, err := c.matching.PreviewMatching(ctx, withToken(&api.PreviewMatchingRequest{TimeSlotID: slotID}, opToken))
		if err != nil {
			t.Fatalf("PreviewMatching failed: %v", err)
		}
		plan := resp.Msg.Plan
		if len(plan.Groups) != 2 || len(plan.Groups[0].SignupIDs) != 5 || len(plan.RemainderSignupIDs) != 1 {
			t.Errorf("unexpected plan: %+v", plan)
		}
		if plan.Groups[0].RestaurantName != "Nopalito" {
			t.Errorf("restaurant = %q", plan.Groups[0].RestaurantName)
		}

		_, err = c.matching.PreviewMatching(ctx, withToken(&api.PreviewMatchingRequest{}, opToken))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("RunMatching", func(t *testing.T) {
		resp, err := c.matching.RunMatching(ctx, withToken(&api.RunMatchingRequest{TimeSlotID: slotID}, opToken))
		if err != nil {
			t.Fatalf("RunMatching failed: %v", err)
		}
		report := resp.Msg.Report
		if len(report.Groups) != 2 || report.SlotStatus != string(models.TimeSlotGrouped) || len(report.RemainderSignupIDs) != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
		if got := len(c.events.Events()); got != 2 {
			t.Errorf("events = %d, want 2", got)
		}

		groups, err := c.slots.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{TimeSlotID: slotID}))
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(groups.Msg.Groups) != 2 || groups.Msg.Groups[0].GroupSize != 5 || len(groups.Msg.Groups[0].Members) != 5 {
			t.Errorf("unexpected groups: %+v", groups.Msg.Groups)
		}

		_, err = c.matching.RunMatching(ctx, withToken(&api.RunMatchingRequest{TimeSlotID: slotID}, opToken))
		assertCode(t, err, connect.CodeFailedPrecondition)

		_, err = c.matching.RunMatching(ctx, withToken(&api.RunMatchingRequest{TimeSlotID: "missing"}, opToken))
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("signups rejected after grouping", func(t *testing.T) {
		_, err := c.slots.CreateSignup(ctx, withToken(&api.CreateSignupRequest{TimeSlotID: slotID}, dinerToken))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("RunMatching unknown dinner type", func(t *testing.T) {
		bad := &models.TimeSlot{Date: "2026-11-09", Time: "19:00", DinnerType: "brunch"}
		if err := c.store.CreateTimeSlot(ctx, bad); err != nil {
			t.Fatalf("CreateTimeSlot failed: %v", err)
		}

		_, err := c.matching.RunMatching(ctx, withToken(&api.RunMatchingRequest{TimeSlotID: bad.ID}, opToken))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("RunOpenSlots", func(t *testing.T) {
		singles, err := c.slots.CreateTimeSlot(ctx, withToken(&api.CreateTimeSlotRequest{
			Date: "2026-11-08", Time: "19:00", DinnerType: "singles",
		}, opToken))
		if err != nil {
			t.Fatalf("CreateTimeSlot failed: %v", err)
		}
		for i := range 4 {
			s := &models.Signup{TimeSlotID: singles.Msg.TimeSlot.ID, UserID: "single-" + string(rune('a'+i)), SignedUpAt: int64(i + 1)}
			if err := c.store.CreateSignup(ctx, s); err != nil {
				t.Fatalf("CreateSignup failed: %v", err)
			}
		}

		resp, err := c.matching.RunOpenSlots(ctx, withToken(&api.RunOpenSlotsRequest{}, opToken))
		if err != nil {
			t.Fatalf("RunOpenSlots failed: %v", err)
		}
		if len(resp.Msg.Reports) != 1 || len(resp.Msg.Reports[0].Groups) != 2 {
			t.Errorf("unexpected reports: %+v", resp.Msg.Reports)
		}
		// The brunch slot is still open and fails again.
		if len(resp.Msg.Errors) != 1 {
			t.Errorf("errors = %v, want one", resp.Msg.Errors)
		}
	})
}
