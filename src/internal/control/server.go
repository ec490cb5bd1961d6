package control

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const watchBuffer = 64

// Updater is the update pipeline driven by the control service
type Updater interface {
	Check(ctx context.Context) (models.CheckResult, error)
	Start(ctx context.Context) error
	Status() models.UpdateStatus
	LastCheck() models.UpdateStatus
}

// Server implements the control service
type Server struct {
	updater Updater
	hub     *Hub
	logger  *log.Logger

	// runCtx outlives individual requests; update runs started over RPC
	// continue after the caller disconnects.
	runCtx context.Context
}

// NewServer creates a control server. runCtx bounds update runs started
// through Update.
func NewServer(runCtx context.Context, updater Updater, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		updater: updater,
		hub:     hub,
		logger:  logger.WithPrefix("control"),
		runCtx:  runCtx,
	}
}

// CheckForUpdate runs one check. A failed check is a normal response with
// outcome "failed".
func (s *Server) CheckForUpdate(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	res, err := s.updater.Check(ctx)
	if errors.Is(err, models.ErrUpdateInProgress) {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	if err != nil {
		s.logger.Warn("check failed", "err", err)
	}
	return toStatus(CheckStruct(res))
}

// Status returns the current or last pipeline run, with the last
// check-only run nested under "last_check".
func (s *Server) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	msg, err := StatusStruct(s.updater.Status())
	if err != nil {
		return toStatus(nil, err)
	}
	last, err := StatusStruct(s.updater.LastCheck())
	if err != nil {
		return toStatus(nil, err)
	}
	msg.Fields["last_check"] = structpb.NewStructValue(last)
	return msg, nil
}

// Update starts an update run in the background and returns the status
// right after it began.
func (s *Server) Update(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.updater.Start(s.runCtx); err != nil {
		if errors.Is(err, models.ErrUpdateInProgress) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.logger.Info("update run started over control surface")
	return toStatus(StatusStruct(s.updater.Status()))
}

// Watch streams events to the client until it disconnects
func (s *Server) Watch(_ *emptypb.Empty, stream WatchServer) error {
	ch, cancel := s.hub.Subscribe(watchBuffer)
	defer cancel()

	s.logger.Debug("watcher connected", "watchers", s.hub.Watchers())
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := EventStruct(e)
			if err != nil {
				s.logger.Warn("dropping unencodable event", "kind", e.Kind, "err", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

func toStatus(msg *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}
