package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/client"
	"github.com/totegamma/concrnt-console/internal/domain"
)

// BackendGateway adapts client.Client to the usecase ports. Credentials
// travel per call; the shared client never holds one.
type BackendGateway struct {
	client *client.Client
}

func NewBackendGateway(cl *client.Client) *BackendGateway {
	return &BackendGateway{client: cl}
}

// notFound turns a 404 from an optional endpoint into domain.NotFoundError.
func notFound(err error, resource string) error {
	if client.StatusCode(err) == http.StatusNotFound {
		return domain.NotFoundError{Resource: resource}
	}
	return err
}

func (g *BackendGateway) FetchDomainProfile(ctx context.Context) (concrnt.DomainProfile, error) {
	return g.client.FetchDomainProfile(ctx)
}

func (g *BackendGateway) FetchTermsOfService(ctx context.Context) (string, error) {
	doc, err := g.client.FetchTermsOfService(ctx)
	return doc, notFound(err, "terms of service")
}

func (g *BackendGateway) FetchCodeOfConduct(ctx context.Context) (string, error) {
	doc, err := g.client.FetchCodeOfConduct(ctx)
	return doc, notFound(err, "code of conduct")
}

func (g *BackendGateway) FetchRegisterTemplate(ctx context.Context) (json.RawMessage, error) {
	raw, err := g.client.FetchRegisterTemplate(ctx)
	return raw, notFound(err, "register template")
}

func (g *BackendGateway) ClaimSession(ctx context.Context, clientSignedToken string) (string, error) {
	return g.client.ClaimSession(ctx, clientSignedToken)
}

func (g *BackendGateway) ResolveEntity(ctx context.Context, id string) (*concrnt.Entity, error) {
	return g.client.ResolveEntity(ctx, id)
}

func (g *BackendGateway) SubmitRegistration(ctx context.Context, credential string, request concrnt.RegistrationRequest) error {
	return g.client.WithCredential(credential).SubmitRegistration(ctx, request)
}

type EntityGateway struct {
	client *client.Client
}

func NewEntityGateway(cl *client.Client) *EntityGateway {
	return &EntityGateway{client: cl}
}

func (g *EntityGateway) List(ctx context.Context, credential string) ([]concrnt.Entity, error) {
	return g.client.WithCredential(credential).ListEntities(ctx)
}

func (g *EntityGateway) Create(ctx context.Context, credential string, id string) error {
	return g.client.WithCredential(credential).CreateEntity(ctx, id)
}

func (g *EntityGateway) Update(ctx context.Context, credential string, entity concrnt.Entity) error {
	return g.client.WithCredential(credential).UpdateEntity(ctx, entity)
}

func (g *EntityGateway) Delete(ctx context.Context, credential string, id string) error {
	return g.client.WithCredential(credential).DeleteEntity(ctx, id)
}

type DomainGateway struct {
	client *client.Client
}

func NewDomainGateway(cl *client.Client) *DomainGateway {
	return &DomainGateway{client: cl}
}

func (g *DomainGateway) List(ctx context.Context, credential string) ([]concrnt.Domain, error) {
	return g.client.WithCredential(credential).ListDomains(ctx)
}

func (g *DomainGateway) Create(ctx context.Context, credential string, fqdn string) error {
	return g.client.WithCredential(credential).AddDomain(ctx, fqdn)
}

func (g *DomainGateway) Update(ctx context.Context, credential string, d concrnt.Domain) error {
	return g.client.WithCredential(credential).UpdateDomain(ctx, d)
}

func (g *DomainGateway) Delete(ctx context.Context, credential string, fqdn string) error {
	return g.client.WithCredential(credential).DeleteDomain(ctx, fqdn)
}

type HostGateway struct {
	client *client.Client
}

func NewHostGateway(cl *client.Client) *HostGateway {
	return &HostGateway{client: cl}
}

func (g *HostGateway) List(ctx context.Context, credential string) ([]concrnt.Host, error) {
	return g.client.WithCredential(credential).ListKnownHosts(ctx)
}

// Create greets the remote host; a successful handshake adds it.
func (g *HostGateway) Create(ctx context.Context, credential string, fqdn string) error {
	return g.client.WithCredential(credential).GreetHost(ctx, fqdn)
}

func (g *HostGateway) Update(ctx context.Context, credential string, h concrnt.Host) error {
	return g.client.WithCredential(credential).UpdateHost(ctx, h)
}

func (g *HostGateway) Delete(ctx context.Context, credential string, fqdn string) error {
	return g.client.WithCredential(credential).DeleteHost(ctx, fqdn)
}
