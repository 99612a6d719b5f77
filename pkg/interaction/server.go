package interaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
	"github.com/mash-protocol/mash-endpoint/pkg/wire"
)

// DefaultLockTimeout bounds the wait for the stack lock.
const DefaultLockTimeout = 2 * time.Second

// Server handles incoming requests for a node.
type Server struct {
	mu sync.RWMutex

	node        *model.Node
	lockTimeout time.Duration
	logger      *slog.Logger
	events      mlog.Logger
}

// NewServer creates a new interaction server for the given node.
func NewServer(node *model.Node) *Server {
	return &Server{
		node:        node,
		lockTimeout: DefaultLockTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		events:      mlog.NoopLogger{},
	}
}

// SetLockTimeout sets the bounded wait for the stack lock.
func (s *Server) SetLockTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.lockTimeout = d
	}
}

// SetLogger sets the operational logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.logger = logger
	}
}

// SetEventLogger sets the protocol event logger.
func (s *Server) SetEventLogger(events mlog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if events != nil {
		s.events = events
	}
}

func (s *Server) snapshot() (time.Duration, *slog.Logger, mlog.Logger) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lockTimeout, s.logger, s.events
}

// HandleRequest processes a unicast request and returns its response.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) *wire.Response {
	start := time.Now()
	_, logger, events := s.snapshot()
	events.Log(mlog.RequestEvent(mlog.DirectionIn, s.node.NodeID(), req.SourceNode, req))

	var resp *wire.Response
	switch req.Operation {
	case wire.OpRead:
		resp = s.handleRead(req)
	case wire.OpWrite:
		resp = s.handleWrite(ctx, req)
	case wire.OpInvoke:
		resp = s.handleInvoke(ctx, req)
	default:
		resp = errorResponse(req.MessageID, wire.StatusInvalidCommand, "unknown operation")
	}

	if resp.Status.IsError() {
		logger.Debug("request failed", "request", req.String(), "status", resp.Status.String(), "message", resp.Message)
	}
	events.Log(mlog.ResponseEvent(mlog.DirectionOut, s.node.NodeID(), req.SourceNode, resp, time.Since(start)))
	return resp
}

func (s *Server) handleRead(req *wire.Request) *wire.Response {
	path := model.AttributePath{Endpoint: req.Endpoint, Cluster: req.Cluster, Attribute: req.ID}
	value, err := s.node.ReadAttribute(path)
	if err != nil {
		return errorResponse(req.MessageID, StatusFor(err), err.Error())
	}
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
		Value:     value,
	}
}

func (s *Server) handleWrite(ctx context.Context, req *wire.Request) *wire.Response {
	unlock, err := s.lock(ctx)
	if err != nil {
		return errorResponse(req.MessageID, wire.StatusBusy, err.Error())
	}
	defer unlock()

	path := model.AttributePath{Endpoint: req.Endpoint, Cluster: req.Cluster, Attribute: req.ID}
	if err := s.node.WriteAttributeLocked(path, req.Value); err != nil {
		status := StatusFor(err)
		if errors.Is(err, model.ErrAttributeValueType) {
			status = wire.StatusConstraintError
		}
		return errorResponse(req.MessageID, status, err.Error())
	}
	return &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess}
}

func (s *Server) handleInvoke(ctx context.Context, req *wire.Request) *wire.Response {
	unlock, err := s.lock(ctx)
	if err != nil {
		return errorResponse(req.MessageID, wire.StatusBusy, err.Error())
	}
	defer unlock()

	path := model.CommandPath{Endpoint: req.Endpoint, Cluster: req.Cluster, Command: req.ID}
	fields, err := s.node.InvokeLocked(ctx, path, req.Fields)
	if err != nil {
		return errorResponse(req.MessageID, StatusFor(err), err.Error())
	}
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
		Fields:    fields,
	}
}

// HandleGroupRequest runs a group-addressed invoke on every member endpoint.
// Endpoints without the target cluster are skipped.
func (s *Server) HandleGroupRequest(ctx context.Context, req *wire.Request) error {
	_, logger, events := s.snapshot()
	events.Log(mlog.RequestEvent(mlog.DirectionIn, s.node.NodeID(), req.SourceNode, req))

	if req.Operation != wire.OpInvoke {
		return ErrGroupOperation
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	var errs []error
	for _, ep := range s.node.FindEndpointsWithCluster(clusters.GroupsID) {
		gc, _ := ep.GetCluster(clusters.GroupsID)
		if !clusters.IsGroupMember(ctx, gc, req.Group) || !ep.HasServerCluster(req.Cluster) {
			continue
		}
		path := model.CommandPath{Endpoint: ep.ID(), Cluster: req.Cluster, Command: req.ID}
		if _, err := s.node.InvokeLocked(ctx, path, req.Fields); err != nil {
			logger.Debug("group invoke failed", "group", req.Group, "path", path.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) lock(ctx context.Context) (func(), error) {
	timeout, _, _ := s.snapshot()
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	l := s.node.Lock()
	if err := l.Lock(lctx); err != nil {
		return nil, err
	}
	return l.Unlock, nil
}

// ErrGroupOperation is returned for group requests other than Invoke.
var ErrGroupOperation = errors.New("group requests must be invokes")

// StatusFor maps a data model error to a response status.
func StatusFor(err error) wire.Status {
	switch {
	case err == nil:
		return wire.StatusSuccess
	case errors.Is(err, model.ErrEndpointNotFound):
		return wire.StatusUnsupportedEndpoint
	case errors.Is(err, model.ErrClusterNotFound):
		return wire.StatusUnsupportedCluster
	case errors.Is(err, model.ErrAttributeNotFound):
		return wire.StatusUnsupportedAttribute
	case errors.Is(err, model.ErrCommandNotFound):
		return wire.StatusUnsupportedCommand
	case errors.Is(err, model.ErrAttributeNotWritable), errors.Is(err, model.ErrClusterReadOnly):
		return wire.StatusUnsupportedWrite
	case errors.Is(err, model.ErrAttributeOutOfRange), errors.Is(err, model.ErrAttributeNotNullable):
		return wire.StatusConstraintError
	case errors.Is(err, model.ErrInvalidParameters), errors.Is(err, model.ErrAttributeValueType):
		return wire.StatusInvalidCommand
	case errors.Is(err, model.ErrLockTimeout):
		return wire.StatusBusy
	default:
		return wire.StatusFailure
	}
}

func errorResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	return &wire.Response{
		MessageID: msgID,
		Status:    status,
		Message:   message,
	}
}
