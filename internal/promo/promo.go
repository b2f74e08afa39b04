// Package promo fetches server-side price previews for a promo code and keeps
// the latest one per session.
//
// A preview is only ever valid for the (trip, party size, code) tuple it was
// requested with. Each session has a generation counter: starting a new
// request or invalidating bumps it, and a response that comes back under an
// older generation is reported as ErrStale and never stored.
package promo

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/diagnosis/seatrips/internal/domain"
)

var (
	ErrStale          = errors.New("promo preview superseded by a newer request")
	ErrInvalidRequest = errors.New("promo preview requires a trip and at least one person")
)

// API is the slice of the upstream client the previewer needs.
type API interface {
	PreviewBooking(ctx context.Context, tripID int64, numberOfPeople int, promoCode string) (*domain.PromoPreview, error)
}

type Query struct {
	TripID         int64
	NumberOfPeople int
	Code           string
}

func (q Query) normalized() Query {
	q.Code = strings.TrimSpace(q.Code)
	return q
}

type state struct {
	gen     uint64
	preview *domain.PromoPreview
}

type Previewer struct {
	mu     sync.Mutex
	scopes map[string]*state
}

func NewPreviewer() *Previewer {
	return &Previewer{scopes: make(map[string]*state)}
}

func (p *Previewer) scope(key string) *state {
	s, ok := p.scopes[key]
	if !ok {
		s = &state{}
		p.scopes[key] = s
	}
	return s
}

// Preview returns the preview for q within scope, asking api only when the
// cached preview is for a different tuple. On failure the cached preview is
// dropped and the API error is returned unchanged.
func (p *Previewer) Preview(ctx context.Context, api API, scope string, q Query) (*domain.PromoPreview, error) {
	q = q.normalized()
	if q.TripID <= 0 || q.NumberOfPeople <= 0 {
		return nil, ErrInvalidRequest
	}

	p.mu.Lock()
	s := p.scope(scope)
	if s.preview.Matches(q.TripID, q.NumberOfPeople, q.Code) {
		cached := s.preview
		p.mu.Unlock()
		return cached, nil
	}
	s.gen++
	s.preview = nil
	gen := s.gen
	p.mu.Unlock()

	preview, err := api.PreviewBooking(ctx, q.TripID, q.NumberOfPeople, q.Code)

	p.mu.Lock()
	defer p.mu.Unlock()

	s = p.scope(scope)
	if s.gen != gen {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// the client stamps the tuple, but a fake or older client may not
	preview.TripID = q.TripID
	preview.NumberOfPeople = q.NumberOfPeople
	preview.Code = q.Code
	s.preview = preview
	return preview, nil
}

// Lookup returns the cached preview only when it matches q exactly. A q for
// any other tuple is an input change: the cached preview is dropped and any
// in-flight request becomes stale, so going back to the old input does not
// bring the old figures back.
func (p *Previewer) Lookup(scope string, q Query) (*domain.PromoPreview, bool) {
	q = q.normalized()

	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.scopes[scope]
	if !ok {
		return nil, false
	}
	if !s.preview.Matches(q.TripID, q.NumberOfPeople, q.Code) {
		s.gen++
		s.preview = nil
		return nil, false
	}
	return s.preview, true
}

// Invalidate drops the cached preview and makes any in-flight request stale.
func (p *Previewer) Invalidate(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.scopes[scope]; ok {
		s.gen++
		s.preview = nil
	}
}

// Forget removes all state for scope, e.g. when its session ends.
func (p *Previewer) Forget(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.scopes[scope]; ok {
		s.gen++
		s.preview = nil
		delete(p.scopes, scope)
	}
}
