package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/sharedtable/fare/internal/auth"
	"github.com/sharedtable/fare/internal/middleware"
	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/partition"
	"github.com/sharedtable/fare/internal/storage"
	"github.com/sharedtable/fare/pkg/api"
)

var _ api.SlotServiceHandler = (*SlotService)(nil)

// SlotStore is the persistence SlotService needs.
type SlotStore interface {
	storage.TimeSlotStore
	storage.SignupStore
	storage.GroupStore
}

// SlotService implements the Connect SlotService. It expects OptionalAuth in
// front of it; operations that need a caller check for one themselves.
type SlotService struct {
	store  SlotStore
	logger *slog.Logger
}

// NewSlotService creates a new SlotService with the given storage backend.
func NewSlotService(store SlotStore, logger *slog.Logger) *SlotService {
	return &SlotService{store: store, logger: logger}
}

// CreateTimeSlot creates an open slot. Operators only.
func (s *SlotService) CreateTimeSlot(ctx context.Context, req *connect.Request[api.CreateTimeSlotRequest]) (*connect.Response[api.CreateTimeSlotResponse], error) {
	s.logger.Info("CreateTimeSlot request received",
		"date", req.Msg.Date,
		"time", req.Msg.Time,
		"dinner_type", req.Msg.DinnerType,
	)

	if err := requireOperator(ctx); err != nil {
		return nil, toConnectError(err)
	}

	if _, err := time.Parse(time.DateOnly, req.Msg.Date); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %q", errInvalidDate, req.Msg.Date))
	}
	if _, err := time.Parse("15:04", req.Msg.Time); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %q", errInvalidTime, req.Msg.Time))
	}
	dt, err := partition.ParseDinnerType(req.Msg.DinnerType)
	if err != nil {
		return nil, toConnectError(err)
	}

	slot := &models.TimeSlot{
		Date:       req.Msg.Date,
		Time:       req.Msg.Time,
		DinnerType: dt.String(),
	}
	if err := s.store.CreateTimeSlot(ctx, slot); err != nil {
		s.logger.Error("CreateTimeSlot failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Time slot created", "slot_id", slot.ID, "dinner_type", slot.DinnerType)
	return connect.NewResponse(&api.CreateTimeSlotResponse{TimeSlot: toAPITimeSlot(slot)}), nil
}

// ListTimeSlots lists slots, optionally filtered by status.
func (s *SlotService) ListTimeSlots(ctx context.Context, req *connect.Request[api.ListTimeSlotsRequest]) (*connect.Response[api.ListTimeSlotsResponse], error) {
	s.logger.Info("ListTimeSlots request received", "status", req.Msg.Status)

	status := models.TimeSlotStatus(strings.ToLower(req.Msg.Status))
	if status != "" && !status.Valid() {
		return nil, toConnectError(fmt.Errorf("%w: %q", errInvalidStatus, req.Msg.Status))
	}

	slots, err := s.store.ListTimeSlots(ctx, status)
	if err != nil {
		s.logger.Error("ListTimeSlots failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.TimeSlot, len(slots))
	for i, slot := range slots {
		out[i] = toAPITimeSlot(slot)
	}

	s.logger.Info("ListTimeSlots successful", "count", len(out))
	return connect.NewResponse(&api.ListTimeSlotsResponse{TimeSlots: out}), nil
}

// CreateSignup registers the caller for an open slot.
func (s *SlotService) CreateSignup(ctx context.Context, req *connect.Request[api.CreateSignupRequest]) (*connect.Response[api.CreateSignupResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.Info("CreateSignup request received", "slot_id", req.Msg.TimeSlotID, "user_id", userID)

	if userID == "" {
		return nil, toConnectError(auth.ErrMissingToken)
	}
	if req.Msg.TimeSlotID == "" {
		return nil, toConnectError(fmt.Errorf("%w: time_slot_id", errMissingField))
	}

	signup := &models.Signup{
		TimeSlotID:         req.Msg.TimeSlotID,
		UserID:             userID,
		DietaryRestriction: strings.TrimSpace(req.Msg.DietaryRestriction),
		Preference:         strings.TrimSpace(req.Msg.Preference),
	}
	if err := s.store.CreateSignup(ctx, signup); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = fmt.Errorf("%w: %v", errSlotClosed, err)
		}
		s.logger.Warn("CreateSignup failed", "slot_id", signup.TimeSlotID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Signup created", "signup_id", signup.ID, "slot_id", signup.TimeSlotID, "user_id", userID)
	return connect.NewResponse(&api.CreateSignupResponse{Signup: toAPISignup(signup)}), nil
}

// CancelSignup cancels a pending signup. Only its owner or an operator may
// cancel it.
func (s *SlotService) CancelSignup(ctx context.Context, req *connect.Request[api.CancelSignupRequest]) (*connect.Response[api.CancelSignupResponse], error) {
	userID := middleware.GetUserID(ctx)
	s.logger.Info("CancelSignup request received", "signup_id", req.Msg.SignupID, "user_id", userID)

	if userID == "" {
		return nil, toConnectError(auth.ErrMissingToken)
	}

	signup, err := s.store.GetSignup(ctx, req.Msg.SignupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if signup.UserID != userID && middleware.GetRole(ctx) != models.RoleOperator {
		return nil, toConnectError(errNotOwner)
	}

	if err := s.store.CancelSignup(ctx, signup.ID); err != nil {
		s.logger.Warn("CancelSignup failed", "signup_id", signup.ID, "error", err)
		return nil, toConnectError(err)
	}
	signup.Status = models.SignupCancelled

	s.logger.Info("Signup cancelled", "signup_id", signup.ID)
	return connect.NewResponse(&api.CancelSignupResponse{Signup: toAPISignup(signup)}), nil
}

// ListGroups returns the dinner groups formed for a slot.
func (s *SlotService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	s.logger.Info("ListGroups request received", "slot_id", req.Msg.TimeSlotID)

	if _, err := s.store.GetTimeSlot(ctx, req.Msg.TimeSlotID); err != nil {
		return nil, toConnectError(err)
	}

	groups, err := s.store.ListDinnerGroups(ctx, req.Msg.TimeSlotID)
	if err != nil {
		s.logger.Error("ListGroups failed", "slot_id", req.Msg.TimeSlotID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.DinnerGroup, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}

	s.logger.Info("ListGroups successful", "slot_id", req.Msg.TimeSlotID, "count", len(out))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

func requireOperator(ctx context.Context) error {
	if middleware.GetUserID(ctx) == "" {
		return auth.ErrMissingToken
	}
	if middleware.GetRole(ctx) != models.RoleOperator {
		return auth.ErrForbidden
	}
	return nil
}
