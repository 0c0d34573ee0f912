package models

import "context"

// Viewer is whoever is looking at a panel: either Anonymous or Authenticated.
// Operations switch on it once and never re-check identity afterwards.
type Viewer interface {
	isViewer()
}

// Anonymous is a viewer without a session. Reactions and deletes are no-ops for it.
type Anonymous struct{}

// Authenticated is a viewer with a verified session.
type Authenticated struct {
	ID string `json:"id"`
}

func (Anonymous) isViewer()     {}
func (Authenticated) isViewer() {}

// ViewerID returns the authenticated user id, or false for anonymous viewers.
func ViewerID(v Viewer) (string, bool) {
	if a, ok := v.(Authenticated); ok && a.ID != "" {
		return a.ID, true
	}
	return "", false
}

type viewerCtxKey struct{}

// WithViewer stores the request's viewer on ctx.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, v)
}

// ViewerFromContext returns the viewer stored on ctx, or Anonymous when none was set.
func ViewerFromContext(ctx context.Context) Viewer {
	if v, ok := ctx.Value(viewerCtxKey{}).(Viewer); ok && v != nil {
		return v
	}
	return Anonymous{}
}
