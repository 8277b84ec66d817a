package usecase

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

// Panel is a list with an optional selected record, bound to the lifetime
// of one screen. Fetches are stamped with a generation; a result that
// arrives after a newer fetch or after Close is dropped.
type Panel[T any] struct {
	name       string
	source     ResourceGateway[T]
	key        func(T) string
	credential string

	mu         sync.Mutex
	generation uint64
	closed     bool
	items      []T
	selected   *T
}

func NewPanel[T any](name string, source ResourceGateway[T], key func(T) string, credential string) *Panel[T] {
	return &Panel[T]{
		name:       name,
		source:     source,
		key:        key,
		credential: credential,
	}
}

func (p *Panel[T]) Name() string {
	return p.name
}

// Refresh refetches the collection. It reports whether the result was applied.
func (p *Panel[T]) Refresh(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "Panel.Refresh")
	defer span.End()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, nil
	}
	p.generation++
	generation := p.generation
	p.mu.Unlock()

	items, err := p.source.List(ctx, p.credential)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || generation != p.generation {
		slog.DebugContext(
			ctx, "discarding stale panel result",
			slog.String("panel", p.name),
			slog.String("module", "panel"),
		)
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to list "+p.name)
	}

	p.items = items
	return true, nil
}

func (p *Panel[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// Select copies the record with the given id into the edit buffer.
func (p *Panel[T]) Select(id string) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range p.items {
		if p.key(item) == id {
			buffer := item
			p.selected = &buffer
			return buffer, nil
		}
	}

	p.selected = nil
	var zero T
	return zero, domain.NotFoundError{Resource: p.name}
}

func (p *Panel[T]) Selected() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.selected == nil {
		var zero T
		return zero, false
	}
	return *p.selected, true
}

// Deselect closes the detail view.
func (p *Panel[T]) Deselect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = nil
}

// Update replaces the whole record, then closes the detail view and refreshes.
func (p *Panel[T]) Update(ctx context.Context, item T) error {
	ctx, span := tracer.Start(ctx, "Panel.Update")
	defer span.End()

	err := p.source.Update(ctx, p.credential, item)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to update "+p.name)
	}

	slog.InfoContext(
		ctx, "record updated",
		slog.String("panel", p.name),
		slog.String("id", p.key(item)),
		slog.String("module", "panel"),
	)

	p.Deselect()
	_, err = p.Refresh(ctx)
	return err
}

func (p *Panel[T]) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Panel.Delete")
	defer span.End()

	err := p.source.Delete(ctx, p.credential, id)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to delete "+p.name)
	}

	slog.InfoContext(
		ctx, "record deleted",
		slog.String("panel", p.name),
		slog.String("id", id),
		slog.String("module", "panel"),
	)

	p.Deselect()
	_, err = p.Refresh(ctx)
	return err
}

// Create asks the backend to add id; the next refresh shows the outcome.
func (p *Panel[T]) Create(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Panel.Create")
	defer span.End()

	if id == "" {
		return errors.Wrap(domain.ErrMalformedInput, "id is empty")
	}

	err := p.source.Create(ctx, p.credential, id)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to create "+p.name)
	}

	_, err = p.Refresh(ctx)
	return err
}

// Close ends the screen. In flight fetches are discarded.
func (p *Panel[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.selected = nil
}

// AdminUsecase hands out panels to sessions carrying the admin tag.
type AdminUsecase struct {
	entities ResourceGateway[concrnt.Entity]
	domains  ResourceGateway[concrnt.Domain]
	hosts    ResourceGateway[concrnt.Host]
	adminTag string
}

func NewAdminUsecase(
	entities ResourceGateway[concrnt.Entity],
	domains ResourceGateway[concrnt.Domain],
	hosts ResourceGateway[concrnt.Host],
	adminTag string,
) *AdminUsecase {
	if adminTag == "" {
		adminTag = domain.DefaultAdminTag
	}
	return &AdminUsecase{
		entities: entities,
		domains:  domains,
		hosts:    hosts,
		adminTag: adminTag,
	}
}

func (uc *AdminUsecase) AdminTag() string {
	return uc.adminTag
}

func (uc *AdminUsecase) Authorize(session domain.Session) error {
	if !session.HasCredential() {
		return domain.ErrNoCredential
	}
	if !session.IsAdmin(uc.adminTag) {
		return domain.ErrForbidden
	}
	return nil
}

func (uc *AdminUsecase) Entities(session domain.Session) (*Panel[concrnt.Entity], error) {
	if err := uc.Authorize(session); err != nil {
		return nil, err
	}
	return NewPanel("entities", uc.entities, concrnt.Entity.CCID, session.Credential), nil
}

func (uc *AdminUsecase) Domains(session domain.Session) (*Panel[concrnt.Domain], error) {
	if err := uc.Authorize(session); err != nil {
		return nil, err
	}
	return NewPanel("domains", uc.domains, func(d concrnt.Domain) string { return d.ID }, session.Credential), nil
}

func (uc *AdminUsecase) Hosts(session domain.Session) (*Panel[concrnt.Host], error) {
	if err := uc.Authorize(session); err != nil {
		return nil, err
	}
	return NewPanel("hosts", uc.hosts, func(h concrnt.Host) string { return h.ID }, session.Credential), nil
}
