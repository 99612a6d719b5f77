package binding

import (
	"context"
	"errors"
	"fmt"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Targets returns the binding table of localEP.
func Targets(node *model.Node, localEP uint16) ([]clusters.BindingTarget, error) {
	c, err := bindingCluster(node, localEP)
	if err != nil {
		return nil, err
	}
	return clusters.Targets(c), nil
}

// Bind adds target to the binding table of localEP under the stack lock.
func Bind(ctx context.Context, node *model.Node, localEP uint16, target clusters.BindingTarget) error {
	return withTable(ctx, node, localEP, func(c *model.Cluster) error {
		return clusters.AddTarget(c, target)
	})
}

// Unbind removes target from the binding table of localEP under the stack
// lock.
func Unbind(ctx context.Context, node *model.Node, localEP uint16, target clusters.BindingTarget) error {
	return withTable(ctx, node, localEP, func(c *model.Cluster) error {
		return clusters.RemoveTarget(c, target)
	})
}

func withTable(ctx context.Context, node *model.Node, localEP uint16, fn func(c *model.Cluster) error) error {
	c, err := bindingCluster(node, localEP)
	if err != nil {
		return err
	}
	lock := node.Lock()
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()
	if err := fn(c); err != nil {
		return fmt.Errorf("endpoint %d: %w", localEP, err)
	}
	return nil
}

func bindingCluster(node *model.Node, localEP uint16) (*model.Cluster, error) {
	c, err := node.GetCluster(localEP, clusters.BindingID)
	if err != nil {
		if errors.Is(err, model.ErrClusterNotFound) {
			return nil, fmt.Errorf("endpoint %d: %w", localEP, ErrNoBindingCluster)
		}
		return nil, fmt.Errorf("endpoint %d: %w", localEP, err)
	}
	return c, nil
}
