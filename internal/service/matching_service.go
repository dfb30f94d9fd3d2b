package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/sharedtable/fare/internal/matching"
	"github.com/sharedtable/fare/pkg/api"
)

var _ api.MatchingServiceHandler = (*MatchingService)(nil)

// MatchingService exposes the matcher over Connect. It is mounted behind
// RequireAuth and RequireRole(operator).
type MatchingService struct {
	matcher *matching.Matcher
	logger  *slog.Logger
}

// NewMatchingService creates a MatchingService around a matcher.
func NewMatchingService(matcher *matching.Matcher, logger *slog.Logger) *MatchingService {
	return &MatchingService{matcher: matcher, logger: logger}
}

// PreviewMatching partitions a slot without writing anything.
func (s *MatchingService) PreviewMatching(ctx context.Context, req *connect.Request[api.PreviewMatchingRequest]) (*connect.Response[api.PreviewMatchingResponse], error) {
	s.logger.Info("PreviewMatching request received", "slot_id", req.Msg.TimeSlotID)

	if req.Msg.TimeSlotID == "" {
		return nil, toConnectError(fmt.Errorf("%w: time_slot_id", errMissingField))
	}

	plan, err := s.matcher.Preview(ctx, req.Msg.TimeSlotID)
	if err != nil {
		s.logger.Warn("PreviewMatching failed", "slot_id", req.Msg.TimeSlotID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("PreviewMatching successful",
		"slot_id", req.Msg.TimeSlotID,
		"groups", len(plan.Groups),
		"remainder", len(plan.Remainder),
	)
	return connect.NewResponse(&api.PreviewMatchingResponse{Plan: toAPIPlan(plan)}), nil
}

// RunMatching matches one slot.
func (s *MatchingService) RunMatching(ctx context.Context, req *connect.Request[api.RunMatchingRequest]) (*connect.Response[api.RunMatchingResponse], error) {
	s.logger.Info("RunMatching request received", "slot_id", req.Msg.TimeSlotID)

	if req.Msg.TimeSlotID == "" {
		return nil, toConnectError(fmt.Errorf("%w: time_slot_id", errMissingField))
	}

	report, err := s.matcher.Run(ctx, req.Msg.TimeSlotID)
	if err != nil {
		s.logger.Warn("RunMatching failed", "slot_id", req.Msg.TimeSlotID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RunMatchingResponse{Report: toAPIReport(report)}), nil
}

// RunOpenSlots matches every open slot. Per-slot failures are reported in
// the response rather than failing the call.
func (s *MatchingService) RunOpenSlots(ctx context.Context, req *connect.Request[api.RunOpenSlotsRequest]) (*connect.Response[api.RunOpenSlotsResponse], error) {
	s.logger.Info("RunOpenSlots request received")

	reports, err := s.matcher.RunOpen(ctx)

	resp := &api.RunOpenSlotsResponse{Reports: make([]api.MatchReport, len(reports))}
	for i, r := range reports {
		resp.Reports[i] = toAPIReport(r)
	}
	if err != nil {
		if reports == nil {
			s.logger.Error("RunOpenSlots failed", "error", err)
			return nil, toConnectError(err)
		}
		for _, e := range unwrapJoined(err) {
			resp.Errors = append(resp.Errors, e.Error())
		}
		s.logger.Warn("RunOpenSlots finished with errors", "failed", len(resp.Errors))
	}

	s.logger.Info("RunOpenSlots successful", "slots", len(resp.Reports))
	return connect.NewResponse(resp), nil
}

// ListPolicies returns the group-size policy table in effect.
func (s *MatchingService) ListPolicies(ctx context.Context, req *connect.Request[api.ListPoliciesRequest]) (*connect.Response[api.ListPoliciesResponse], error) {
	entries := s.matcher.Policies().Entries()
	policies := make([]api.Policy, len(entries))
	for i, e := range entries {
		policies[i] = toAPIPolicy(e.DinnerType, e.Policy)
	}
	return connect.NewResponse(&api.ListPoliciesResponse{Policies: policies}), nil
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
