package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/sharedtable/fare/internal/auth"
	"github.com/sharedtable/fare/internal/matching"
	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/partition"
	"github.com/sharedtable/fare/internal/storage"
	"github.com/sharedtable/fare/pkg/api"
)

var (
	errMissingField  = errors.New("required field missing")
	errInvalidDate   = errors.New("date must be YYYY-MM-DD")
	errInvalidTime   = errors.New("time must be HH:MM")
	errInvalidStatus = errors.New("unknown time slot status")
	errSlotClosed    = errors.New("time slot is not accepting signups")
	errNotOwner      = errors.New("signup belongs to another user")
)

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var unknown *partition.UnknownDinnerTypeError
	var invalid *partition.InvalidPolicyError
	switch {
	case errors.As(err, &unknown), errors.As(err, &invalid):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, matching.ErrSlotNotOpen), errors.Is(err, storage.ErrConflict), errors.Is(err, errSlotClosed):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, errNotOwner):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, errMissingField), errors.Is(err, errInvalidDate),
		errors.Is(err, errInvalidTime), errors.Is(err, errInvalidStatus):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

func toAPITimeSlot(s *models.TimeSlot) api.TimeSlot {
	return api.TimeSlot{
		ID:         s.ID,
		Date:       s.Date,
		Time:       s.Time,
		DinnerType: s.DinnerType,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt,
	}
}

func toAPISignup(s *models.Signup) api.Signup {
	return api.Signup{
		ID:                 s.ID,
		TimeSlotID:         s.TimeSlotID,
		UserID:             s.UserID,
		Status:             string(s.Status),
		DietaryRestriction: s.DietaryRestriction,
		Preference:         s.Preference,
		SignedUpAt:         s.SignedUpAt,
	}
}

func toAPIGroup(g *models.DinnerGroup) api.DinnerGroup {
	members := make([]api.GroupMember, len(g.Members))
	for i, m := range g.Members {
		members[i] = api.GroupMember{SignupID: m.SignupID, UserID: m.UserID, Status: string(m.Status)}
	}
	return api.DinnerGroup{
		ID:                g.ID,
		TimeSlotID:        g.TimeSlotID,
		RestaurantName:    g.RestaurantName,
		RestaurantAddress: g.RestaurantAddress,
		ReservationDate:   g.ReservationDate,
		ReservationTime:   g.ReservationTime,
		GroupSize:         g.GroupSize,
		Status:            string(g.Status),
		Members:           members,
		CreatedAt:         g.CreatedAt,
	}
}

func toAPIPolicy(dt partition.DinnerType, p partition.GroupSizePolicy) api.Policy {
	return api.Policy{
		DinnerType:  dt.String(),
		Min:         p.Min,
		Max:         p.Max,
		Ideal:       p.Ideal,
		Description: p.Description,
	}
}

func signupIDs(signups []*models.Signup) []string {
	ids := make([]string, len(signups))
	for i, s := range signups {
		ids[i] = s.ID
	}
	return ids
}

func toAPIPlan(p *matching.Plan) api.MatchPlan {
	groups := make([]api.PlannedGroup, len(p.Groups))
	for i, g := range p.Groups {
		groups[i] = api.PlannedGroup{
			RestaurantName:    g.RestaurantName,
			RestaurantAddress: g.RestaurantAddress,
			SignupIDs:         signupIDs(g.Signups),
		}
	}
	return api.MatchPlan{
		TimeSlotID:         p.Slot.ID,
		DinnerType:         p.DinnerType.String(),
		Policy:             toAPIPolicy(p.DinnerType, p.Policy),
		Groups:             groups,
		RemainderSignupIDs: signupIDs(p.Remainder),
	}
}

func toAPIReport(r *matching.Report) api.MatchReport {
	groups := make([]api.DinnerGroup, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = toAPIGroup(g)
	}
	return api.MatchReport{
		TimeSlotID:         r.SlotID,
		DinnerType:         r.DinnerType,
		Groups:             groups,
		RemainderSignupIDs: signupIDs(r.Remainder),
		FailedGroups:       r.Failed,
		SlotStatus:         string(r.SlotStatus),
	}
}
