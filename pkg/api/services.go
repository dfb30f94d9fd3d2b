package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	AuthServiceName     = "fare.v1.AuthService"
	SlotServiceName     = "fare.v1.SlotService"
	MatchingServiceName = "fare.v1.MatchingService"
)

// Fully-qualified procedure names.
const (
	AuthServiceRegisterProcedure = "/fare.v1.AuthService/Register"
	AuthServiceLoginProcedure    = "/fare.v1.AuthService/Login"

	SlotServiceCreateTimeSlotProcedure = "/fare.v1.SlotService/CreateTimeSlot"
	SlotServiceListTimeSlotsProcedure  = "/fare.v1.SlotService/ListTimeSlots"
	SlotServiceCreateSignupProcedure   = "/fare.v1.SlotService/CreateSignup"
	SlotServiceCancelSignupProcedure   = "/fare.v1.SlotService/CancelSignup"
	SlotServiceListGroupsProcedure     = "/fare.v1.SlotService/ListGroups"

	MatchingServicePreviewMatchingProcedure = "/fare.v1.MatchingService/PreviewMatching"
	MatchingServiceRunMatchingProcedure     = "/fare.v1.MatchingService/RunMatching"
	MatchingServiceRunOpenSlotsProcedure    = "/fare.v1.MatchingService/RunOpenSlots"
	MatchingServiceListPoliciesProcedure    = "/fare.v1.MatchingService/ListPolicies"
)

type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
}

type SlotServiceHandler interface {
	CreateTimeSlot(context.Context, *connect.Request[CreateTimeSlotRequest]) (*connect.Response[CreateTimeSlotResponse], error)
	ListTimeSlots(context.Context, *connect.Request[ListTimeSlotsRequest]) (*connect.Response[ListTimeSlotsResponse], error)
	CreateSignup(context.Context, *connect.Request[CreateSignupRequest]) (*connect.Response[CreateSignupResponse], error)
	CancelSignup(context.Context, *connect.Request[CancelSignupRequest]) (*connect.Response[CancelSignupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
}

type MatchingServiceHandler interface {
	PreviewMatching(context.Context, *connect.Request[PreviewMatchingRequest]) (*connect.Response[PreviewMatchingResponse], error)
	RunMatching(context.Context, *connect.Request[RunMatchingRequest]) (*connect.Response[RunMatchingResponse], error)
	RunOpenSlots(context.Context, *connect.Request[RunOpenSlotsRequest]) (*connect.Response[RunOpenSlotsResponse], error)
	ListPolicies(context.Context, *connect.Request[ListPoliciesRequest]) (*connect.Response[ListPoliciesResponse], error)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

// routes maps procedure paths to handlers under one service prefix.
func routes(service string, handlers map[string]http.Handler) (string, http.Handler) {
	return "/" + service + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// NewAuthServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes(AuthServiceName, map[string]http.Handler{
		AuthServiceRegisterProcedure: connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...),
		AuthServiceLoginProcedure:    connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
	})
}

func NewSlotServiceHandler(svc SlotServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes(SlotServiceName, map[string]http.Handler{
		SlotServiceCreateTimeSlotProcedure: connect.NewUnaryHandler(SlotServiceCreateTimeSlotProcedure, svc.CreateTimeSlot, opts...),
		SlotServiceListTimeSlotsProcedure:  connect.NewUnaryHandler(SlotServiceListTimeSlotsProcedure, svc.ListTimeSlots, opts...),
		SlotServiceCreateSignupProcedure:   connect.NewUnaryHandler(SlotServiceCreateSignupProcedure, svc.CreateSignup, opts...),
		SlotServiceCancelSignupProcedure:   connect.NewUnaryHandler(SlotServiceCancelSignupProcedure, svc.CancelSignup, opts...),
		SlotServiceListGroupsProcedure:     connect.NewUnaryHandler(SlotServiceListGroupsProcedure, svc.ListGroups, opts...),
	})
}

func NewMatchingServiceHandler(svc MatchingServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes(MatchingServiceName, map[string]http.Handler{
		MatchingServicePreviewMatchingProcedure: connect.NewUnaryHandler(MatchingServicePreviewMatchingProcedure, svc.PreviewMatching, opts...),
		MatchingServiceRunMatchingProcedure:     connect.NewUnaryHandler(MatchingServiceRunMatchingProcedure, svc.RunMatching, opts...),
		MatchingServiceRunOpenSlotsProcedure:    connect.NewUnaryHandler(MatchingServiceRunOpenSlotsProcedure, svc.RunOpenSlots, opts...),
		MatchingServiceListPoliciesProcedure:    connect.NewUnaryHandler(MatchingServiceListPoliciesProcedure, svc.ListPolicies, opts...),
	})
}

// AuthServiceClient calls fare.v1.AuthService.
type AuthServiceClient struct {
	register *connect.Client[RegisterRequest, RegisterResponse]
	login    *connect.Client[LoginRequest, LoginResponse]
}

// NewAuthServiceClient constructs a client for fare.v1.AuthService. baseURL
// is the server root, e.g. http://localhost:8080.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register: connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:    connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

// SlotServiceClient calls fare.v1.SlotService.
type SlotServiceClient struct {
	createTimeSlot *connect.Client[CreateTimeSlotRequest, CreateTimeSlotResponse]
	listTimeSlots  *connect.Client[ListTimeSlotsRequest, ListTimeSlotsResponse]
	createSignup   *connect.Client[CreateSignupRequest, CreateSignupResponse]
	cancelSignup   *connect.Client[CancelSignupRequest, CancelSignupResponse]
	listGroups     *connect.Client[ListGroupsRequest, ListGroupsResponse]
}

func NewSlotServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SlotServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &SlotServiceClient{
		createTimeSlot: connect.NewClient[CreateTimeSlotRequest, CreateTimeSlotResponse](httpClient, baseURL+SlotServiceCreateTimeSlotProcedure, opts...),
		listTimeSlots:  connect.NewClient[ListTimeSlotsRequest, ListTimeSlotsResponse](httpClient, baseURL+SlotServiceListTimeSlotsProcedure, opts...),
		createSignup:   connect.NewClient[CreateSignupRequest, CreateSignupResponse](httpClient, baseURL+SlotServiceCreateSignupProcedure, opts...),
		cancelSignup:   connect.NewClient[CancelSignupRequest, CancelSignupResponse](httpClient, baseURL+SlotServiceCancelSignupProcedure, opts...),
		listGroups:     connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+SlotServiceListGroupsProcedure, opts...),
	}
}

func (c *SlotServiceClient) CreateTimeSlot(ctx context.Context, req *connect.Request[CreateTimeSlotRequest]) (*connect.Response[CreateTimeSlotResponse], error) {
	return c.createTimeSlot.CallUnary(ctx, req)
}

func (c *SlotServiceClient) ListTimeSlots(ctx context.Context, req *connect.Request[ListTimeSlotsRequest]) (*connect.Response[ListTimeSlotsResponse], error) {
	return c.listTimeSlots.CallUnary(ctx, req)
}

func (c *SlotServiceClient) CreateSignup(ctx context.Context, req *connect.Request[CreateSignupRequest]) (*connect.Response[CreateSignupResponse], error) {
	return c.createSignup.CallUnary(ctx, req)
}

func (c *SlotServiceClient) CancelSignup(ctx context.Context, req *connect.Request[CancelSignupRequest]) (*connect.Response[CancelSignupResponse], error) {
	return c.cancelSignup.CallUnary(ctx, req)
}

func (c *SlotServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

// MatchingServiceClient calls fare.v1.MatchingService.
type MatchingServiceClient struct {
	previewMatching *connect.Client[PreviewMatchingRequest, PreviewMatchingResponse]
	runMatching     *connect.Client[RunMatchingRequest, RunMatchingResponse]
	runOpenSlots    *connect.Client[RunOpenSlotsRequest, RunOpenSlotsResponse]
	listPolicies    *connect.Client[ListPoliciesRequest, ListPoliciesResponse]
}

func NewMatchingServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MatchingServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &MatchingServiceClient{
		previewMatching: connect.NewClient[PreviewMatchingRequest, PreviewMatchingResponse](httpClient, baseURL+MatchingServicePreviewMatchingProcedure, opts...),
		runMatching:     connect.NewClient[RunMatchingRequest, RunMatchingResponse](httpClient, baseURL+MatchingServiceRunMatchingProcedure, opts...),
		runOpenSlots:    connect.NewClient[RunOpenSlotsRequest, RunOpenSlotsResponse](httpClient, baseURL+MatchingServiceRunOpenSlotsProcedure, opts...),
		listPolicies:    connect.NewClient[ListPoliciesRequest, ListPoliciesResponse](httpClient, baseURL+MatchingServiceListPoliciesProcedure, opts...),
	}
}

func (c *MatchingServiceClient) PreviewMatching(ctx context.Context, req *connect.Request[PreviewMatchingRequest]) (*connect.Response[PreviewMatchingResponse], error) {
	return c.previewMatching.CallUnary(ctx, req)
}

func (c *MatchingServiceClient) RunMatching(ctx context.Context, req *connect.Request[RunMatchingRequest]) (*connect.Response[RunMatchingResponse], error) {
	return c.runMatching.CallUnary(ctx, req)
}

func (c *MatchingServiceClient) RunOpenSlots(ctx context.Context, req *connect.Request[RunOpenSlotsRequest]) (*connect.Response[RunOpenSlotsResponse], error) {
	return c.runOpenSlots.CallUnary(ctx, req)
}

func (c *MatchingServiceClient) ListPolicies(ctx context.Context, req *connect.Request[ListPoliciesRequest]) (*connect.Response[ListPoliciesResponse], error) {
	return c.listPolicies.CallUnary(ctx, req)
}
