// Package rpc exposes the draft commands and a health service over gRPC.
// Draft messages use the JSON codec; callers authenticate with the same
// bearer session token as the HTTP API.
package rpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Billy-Davies-2/championship-draft/internal/auth"
	"github.com/Billy-Davies-2/championship-draft/internal/coordinator"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// ServiceName is the fully qualified draft service name
const ServiceName = "championship.draft.v1.DraftService"

// ReasonKey is the trailer carrying the rejection reason of a failed command
const ReasonKey = "draft-reason"

type MatchRequest struct {
	MatchID string `json:"matchId"`
}

type BansRequest struct {
	MatchID    string   `json:"matchId"`
	LoadoutIDs []string `json:"loadoutIds"`
}

type FactionRequest struct {
	MatchID   string `json:"matchId"`
	FactionID string `json:"factionId"`
}

type PicksRequest struct {
	MatchID    string   `json:"matchId"`
	LoadoutIDs []string `json:"loadoutIds"`
	Confirm    bool     `json:"confirm"`
}

type MatchReply struct {
	Match *models.Match `json:"match"`
}

// DraftService mirrors the HTTP draft actions
type DraftService interface {
	GetMatch(context.Context, *MatchRequest) (*MatchReply, error)
	Ready(context.Context, *MatchRequest) (*MatchReply, error)
	SubmitBans(context.Context, *BansRequest) (*MatchReply, error)
	ChooseFaction(context.Context, *FactionRequest) (*MatchReply, error)
	SubmitPicks(context.Context, *PicksRequest) (*MatchReply, error)
	Confirm(context.Context, *MatchRequest) (*MatchReply, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftService)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetMatch", DraftService.GetMatch),
		unary("Ready", DraftService.Ready),
		unary("SubmitBans", DraftService.SubmitBans),
		unary("ChooseFaction", DraftService.ChooseFaction),
		unary("SubmitPicks", DraftService.SubmitPicks),
		unary("Confirm", DraftService.Confirm),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "draft.json",
}

func unary[Req any](name string, call func(DraftService, context.Context, *Req) (*MatchReply, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DraftService), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Server implements DraftService on top of the coordinator
type Server struct {
	coord    *coordinator.Coordinator
	sessions *auth.Sessions
}

// NewServer creates the draft service
func NewServer(coord *coordinator.Coordinator, sessions *auth.Sessions) *Server {
	return &Server{coord: coord, sessions: sessions}
}

// Register adds the draft service to a gRPC server
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// Authenticate attaches the identity of a bearer token. Calls without a
// token continue anonymously; the draft commands reject them.
func (s *Server) Authenticate(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	logger.Debug("gRPC call", "method", info.FullMethod)

	md, _ := metadata.FromIncomingContext(ctx)
	if values := md.Get("authorization"); len(values) > 0 {
		token := strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))
		id, err := s.sessions.Parse(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid session token")
		}
		ctx = auth.WithIdentity(ctx, id)
	}
	return handler(ctx, req)
}

func caller(ctx context.Context) (string, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "sign in required")
	}
	return id.AccountID, nil
}

func requireMatch(id string) error {
	if id == "" {
		return status.Error(codes.InvalidArgument, "matchId is required")
	}
	return nil
}

func (s *Server) GetMatch(ctx context.Context, in *MatchRequest) (*MatchReply, error) {
	if err := requireMatch(in.MatchID); err != nil {
		return nil, err
	}
	m, err := s.coord.Reader().Match(ctx, in.MatchID)
	return reply(ctx, m, err)
}

func (s *Server) Ready(ctx context.Context, in *MatchRequest) (*MatchReply, error) {
	account, err := s.command(ctx, in.MatchID)
	if err != nil {
		return nil, err
	}
	m, err := s.coord.Ready(ctx, in.MatchID, account)
	return reply(ctx, m, err)
}

func (s *Server) SubmitBans(ctx context.Context, in *BansRequest) (*MatchReply, error) {
	account, err := s.command(ctx, in.MatchID)
	if err != nil {
		return nil, err
	}
	logger.Info("gRPC: Submitting bans", "match", in.MatchID, "account", account, "bans", len(in.LoadoutIDs))
	m, err := s.coord.SubmitBans(ctx, in.MatchID, account, in.LoadoutIDs)
	return reply(ctx, m, err)
}

func (s *Server) ChooseFaction(ctx context.Context, in *FactionRequest) (*MatchReply, error) {
	account, err := s.command(ctx, in.MatchID)
	if err != nil {
		return nil, err
	}
	m, err := s.coord.ChooseFaction(ctx, in.MatchID, account, in.FactionID)
	return reply(ctx, m, err)
}

func (s *Server) SubmitPicks(ctx context.Context, in *PicksRequest) (*MatchReply, error) {
	account, err := s.command(ctx, in.MatchID)
	if err != nil {
		return nil, err
	}
	var m *models.Match
	if in.Confirm {
		m, err = s.coord.SubmitPicks(ctx, in.MatchID, account, in.LoadoutIDs)
	} else {
		m, err = s.coord.SetPicks(ctx, in.MatchID, account, in.LoadoutIDs)
	}
	return reply(ctx, m, err)
}

func (s *Server) Confirm(ctx context.Context, in *MatchRequest) (*MatchReply, error) {
	account, err := s.command(ctx, in.MatchID)
	if err != nil {
		return nil, err
	}
	m, err := s.coord.Confirm(ctx, in.MatchID, account)
	return reply(ctx, m, err)
}

func (s *Server) command(ctx context.Context, matchID string) (string, error) {
	account, err := caller(ctx)
	if err != nil {
		return "", err
	}
	return account, requireMatch(matchID)
}

func reply(ctx context.Context, m *models.Match, err error) (*MatchReply, error) {
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &MatchReply{Match: m}, nil
}

// toStatus maps the draft error taxonomy onto gRPC codes
func toStatus(ctx context.Context, err error) error {
	var verr *draft.ValidationError
	switch {
	case errors.As(err, &verr):
		_ = grpc.SetTrailer(ctx, metadata.Pairs(ReasonKey, string(verr.Reason)))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, draft.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, draft.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, draft.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.Error("gRPC: Draft command failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
