package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/totegamma/concrnt-console"
)

// FetchDomainProfile returns the public profile of the serving domain.
func (c *Client) FetchDomainProfile(ctx context.Context) (concrnt.DomainProfile, error) {
	ctx, span := tracer.Start(ctx, "Client.FetchDomainProfile")
	defer span.End()

	v, err := c.cached("profile", func() (any, error) {
		var profile concrnt.DomainProfile
		err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/domain", nil, &profile)
		return profile, err
	})
	if err != nil {
		span.RecordError(err)
		return concrnt.DomainProfile{}, err
	}
	return v.(concrnt.DomainProfile), nil
}

// ClaimSession exchanges a client signed token for a backend issued one.
func (c *Client) ClaimSession(ctx context.Context, clientSignedToken string) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.ClaimSession")
	defer span.End()

	header := http.Header{}
	header.Set("authentication", clientSignedToken)

	data, err := c.send(ctx, http.MethodGet, "/api/v1/auth/claim", nil, header)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var response concrnt.ClaimResponse
	err = decodeContent(data, &response)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if response.JWT == "" {
		err := errors.New("claim response carries no jwt")
		span.RecordError(err)
		return "", err
	}
	return response.JWT, nil
}

// ResolveEntity returns nil without error when the entity is not registered.
func (c *Client) ResolveEntity(ctx context.Context, id string) (*concrnt.Entity, error) {
	ctx, span := tracer.Start(ctx, "Client.ResolveEntity")
	defer span.End()

	var entity concrnt.Entity
	err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/entity/"+url.PathEscape(id), nil, &entity)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}
	if entity.CCID() == "" {
		return nil, nil
	}
	return &entity, nil
}

func (c *Client) SubmitRegistration(ctx context.Context, request concrnt.RegistrationRequest) error {
	ctx, span := tracer.Start(ctx, "Client.SubmitRegistration")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodPost, "/api/v1/entity", request, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) FetchTermsOfService(ctx context.Context) (string, error) {
	return c.fetchDocument(ctx, "/tos")
}

func (c *Client) FetchCodeOfConduct(ctx context.Context) (string, error) {
	return c.fetchDocument(ctx, "/code-of-conduct")
}

func (c *Client) fetchDocument(ctx context.Context, path string) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.FetchDocument")
	defer span.End()

	v, err := c.cached("doc:"+path, func() (any, error) {
		return c.HttpRequestText(ctx, http.MethodGet, path)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return v.(string), nil
}

// FetchRegisterTemplate returns the JSON schema of the registration form.
func (c *Client) FetchRegisterTemplate(ctx context.Context) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Client.FetchRegisterTemplate")
	defer span.End()

	v, err := c.cached("register-template", func() (any, error) {
		text, err := c.HttpRequestText(ctx, http.MethodGet, "/register-template")
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(text)) {
			return nil, errors.New("register template is not valid json")
		}
		return json.RawMessage(text), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (c *Client) ListEntities(ctx context.Context) ([]concrnt.Entity, error) {
	ctx, span := tracer.Start(ctx, "Client.ListEntities")
	defer span.End()

	var entities []concrnt.Entity
	err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/entities", nil, &entities)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return entities, nil
}

func (c *Client) CreateEntity(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Client.CreateEntity")
	defer span.End()

	body := map[string]string{"ccid": id}
	err := c.HttpRequest(ctx, http.MethodPost, "/api/v1/admin/entity", body, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// UpdateEntity replaces the whole record.
func (c *Client) UpdateEntity(ctx context.Context, entity concrnt.Entity) error {
	ctx, span := tracer.Start(ctx, "Client.UpdateEntity")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodPut, "/api/v1/entity/"+url.PathEscape(entity.CCID()), entity, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) DeleteEntity(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Client.DeleteEntity")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodDelete, "/api/v1/entity/"+url.PathEscape(id), nil, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) ListDomains(ctx context.Context) ([]concrnt.Domain, error) {
	ctx, span := tracer.Start(ctx, "Client.ListDomains")
	defer span.End()

	var domains []concrnt.Domain
	err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/domains", nil, &domains)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return domains, nil
}

// AddDomain asks the backend to greet fqdn; a successful handshake registers it.
func (c *Client) AddDomain(ctx context.Context, fqdn string) error {
	ctx, span := tracer.Start(ctx, "Client.AddDomain")
	defer span.End()

	err := c.sayHello(ctx, fqdn)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) UpdateDomain(ctx context.Context, domain concrnt.Domain) error {
	ctx, span := tracer.Start(ctx, "Client.UpdateDomain")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodPut, "/api/v1/domain", domain, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) DeleteDomain(ctx context.Context, fqdn string) error {
	ctx, span := tracer.Start(ctx, "Client.DeleteDomain")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodDelete, "/api/v1/domain/"+url.PathEscape(fqdn), nil, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) ListKnownHosts(ctx context.Context) ([]concrnt.Host, error) {
	ctx, span := tracer.Start(ctx, "Client.ListKnownHosts")
	defer span.End()

	var hosts []concrnt.Host
	err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/host/list", nil, &hosts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return hosts, nil
}

func (c *Client) GreetHost(ctx context.Context, fqdn string) error {
	ctx, span := tracer.Start(ctx, "Client.GreetHost")
	defer span.End()

	err := c.sayHello(ctx, fqdn)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) UpdateHost(ctx context.Context, host concrnt.Host) error {
	ctx, span := tracer.Start(ctx, "Client.UpdateHost")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodPut, "/api/v1/host", host, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) DeleteHost(ctx context.Context, fqdn string) error {
	ctx, span := tracer.Start(ctx, "Client.DeleteHost")
	defer span.End()

	err := c.HttpRequest(ctx, http.MethodDelete, "/api/v1/host/"+url.PathEscape(fqdn), nil, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) sayHello(ctx context.Context, fqdn string) error {
	return c.HttpRequest(ctx, http.MethodGet, "/api/v1/admin/sayhello/"+url.PathEscape(fqdn), nil, nil)
}
