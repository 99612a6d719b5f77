// Package module implements the device module dispatch system.
//
// A Module owns a family of device types. The Registry picks the owning
// module for each configured endpoint (first match in declaration order),
// initializes the drivers of every module that owns at least one endpoint
// and the BindingTable remembers which module and driver handle built each
// endpoint so attribute and identify events can be routed back to it.
//
// Besides the required Module methods a module may implement any of the
// optional slots PostBuilder, AttributeUpdater, Identifier and PostStarter.
// A missing slot is a no-op.
package module

import (
	"context"
	"errors"

	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Module errors.
var (
	ErrNoModule        = errors.New("no module supports endpoint")
	ErrNotInitialized  = errors.New("module drivers not initialized")
	ErrAlreadyBound    = errors.New("endpoint already bound to a module")
	ErrInvalidHandle   = errors.New("invalid driver handle")
	ErrClusterCreation = errors.New("cluster creation failed")
)

// Handle is the opaque driver handle a module returns from InitDrivers.
// It may be nil for modules without drivers.
type Handle any

// Module is a device module.
type Module interface {
	// Name identifies the module in logs.
	Name() string

	// Supports reports whether the module owns the endpoint.
	Supports(raw resolver.RawEndpoint) bool

	// InitDrivers creates the module's drivers. It runs at most once.
	InitDrivers(ctx context.Context, rc *Context) (Handle, error)

	// BuildEndpoint creates the endpoint and its clusters. The endpoint is
	// not yet part of the node.
	BuildEndpoint(rc *Context, cfg resolver.Resolved, h Handle) (*model.Endpoint, error)
}

// PostBuilder pushes resolved initial values after the endpoint is added
// to the node.
type PostBuilder interface {
	PostBuild(ctx context.Context, rc *Context, ep *model.Endpoint, cfg resolver.Resolved, h Handle) error
}

// AttributeUpdater applies a committed attribute value to the drivers.
type AttributeUpdater interface {
	AttributeUpdate(h Handle, path model.AttributePath, value any) error
}

// Identifier reacts to identify events.
type Identifier interface {
	Identify(h Handle, kind model.IdentifyKind, endpoint uint16, effect, variant uint8) error
}

// PostStarter synchronizes drivers with the data model once the runtime
// is up.
type PostStarter interface {
	PostStart(ctx context.Context, rc *Context, h Handle) error
}
