package domain

import "context"

// SizeClass buckets workspaces for preset selection.
type SizeClass string

const (
	SizeXSSM SizeClass = "xs_sm"
	SizeMD   SizeClass = "md"
	SizeLGXL SizeClass = "lg_xl"
)

// WorkspaceStats exposes the per-workspace figures the router needs.
type WorkspaceStats interface {
	// SizeClass returns the size bucket for a workspace based on its
	// document count.
	SizeClass(ctx context.Context, workspaceID string) (SizeClass, error)
}
