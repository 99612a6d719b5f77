package inspect

import (
	"context"
	"errors"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Session reads, writes and invokes on other nodes. It is implemented by
// interaction.Client.
type Session interface {
	Read(ctx context.Context, node uint64, path model.AttributePath) (any, error)
	Write(ctx context.Context, node uint64, path model.AttributePath, value any) error
	Invoke(ctx context.Context, node uint64, path model.CommandPath, fields map[string]any) (map[string]any, error)
}

// ErrLocalPath is returned when a remote operation gets a path without a
// node.
var ErrLocalPath = errors.New("path does not name a remote node")

// RemoteInspector provides inspection and mutation capabilities for remote
// nodes via an interaction session.
type RemoteInspector struct {
	session Session
}

// NewRemoteInspector creates a new remote inspector for the given session.
func NewRemoteInspector(session Session) *RemoteInspector {
	return &RemoteInspector{session: session}
}

func remoteAttribute(path *Path) (model.AttributePath, error) {
	if path == nil {
		return model.AttributePath{}, errors.New("path is nil")
	}
	if !path.Remote {
		return model.AttributePath{}, ErrLocalPath
	}
	if path.IsPartial || path.IsCommand {
		return model.AttributePath{}, ErrPartialPath
	}
	return model.AttributePath{
		Endpoint:  path.EndpointID,
		Cluster:   path.ClusterID,
		Attribute: path.AttributeID,
	}, nil
}

// ReadAttribute reads a single attribute from the remote node.
func (r *RemoteInspector) ReadAttribute(ctx context.Context, path *Path) (any, error) {
	ap, err := remoteAttribute(path)
	if err != nil {
		return nil, err
	}
	return r.session.Read(ctx, path.NodeID, ap)
}

// WriteAttribute writes a single attribute on the remote node.
func (r *RemoteInspector) WriteAttribute(ctx context.Context, path *Path, value any) error {
	ap, err := remoteAttribute(path)
	if err != nil {
		return err
	}
	return r.session.Write(ctx, path.NodeID, ap, value)
}

// InvokeCommand invokes a command on the remote node.
func (r *RemoteInspector) InvokeCommand(ctx context.Context, path *Path, params map[string]any) (map[string]any, error) {
	if path == nil {
		return nil, errors.New("path is nil")
	}
	if !path.Remote {
		return nil, ErrLocalPath
	}
	if !path.IsCommand {
		return nil, ErrNotCommand
	}
	cp := model.CommandPath{Endpoint: path.EndpointID, Cluster: path.ClusterID, Command: path.CommandID}
	return r.session.Invoke(ctx, path.NodeID, cp, params)
}
