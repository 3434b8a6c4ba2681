package store

import (
	"fmt"

	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
)

func outOfRange(i, n int) error {
	return vserrors.New(vserrors.Argument, fmt.Sprintf("index %d out of range [0,%d)", i, n))
}

func unreadableErr() error {
	return vserrors.New(vserrors.State, "store block descriptors failed to load; store is header-only")
}

func noLocationsErr() error {
	return vserrors.New(vserrors.State, "store has no in-volume data (no catalog type-3 entry)")
}
