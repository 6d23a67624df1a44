// Package twenty is the upstream CRM adapter: a thin typed layer over the
// Twenty GraphQL API. Every operation is a package-constant GraphQL document
// plus a typed variable builder; call sites never assemble query strings.
package twenty

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
)

// upstreamTimeout bounds every CRM call. A hung upstream request fails the
// tool call instead of hanging the MCP exchange.
const upstreamTimeout = 30 * time.Second

// Client executes GraphQL operations against one Twenty workspace, bound to
// a single resolved credential set. Construction is cheap; the router builds
// a fresh Client per inbound request.
type Client struct {
	gql    *graphql.Client
	apiKey string
}

// NewClient builds a client for the workspace at baseURL authenticated with
// apiKey.
func NewClient(baseURL, apiKey string) *Client {
	endpoint := strings.TrimSuffix(baseURL, "/") + "/graphql"
	httpClient := &http.Client{Timeout: upstreamTimeout}
	return &Client{
		gql:    graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
		apiKey: apiKey,
	}
}

// run executes one GraphQL document with bearer auth.
func (c *Client) run(ctx context.Context, doc string, vars map[string]any, out any) error {
	req := graphql.NewRequest(doc)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range vars {
		req.Var(k, v)
	}
	return c.gql.Run(ctx, req, out)
}

// ── wire shapes ─────────────────────────────────────────────

type personNode struct {
	ID   string `json:"id"`
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
	Emails struct {
		PrimaryEmail string `json:"primaryEmail"`
	} `json:"emails"`
	Phones struct {
		PrimaryPhoneNumber string `json:"primaryPhoneNumber"`
	} `json:"phones"`
	JobTitle  string    `json:"jobTitle"`
	City      string    `json:"city"`
	CompanyID string    `json:"companyId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n personNode) toPerson() Person {
	return Person{
		ID:        n.ID,
		FirstName: n.Name.FirstName,
		LastName:  n.Name.LastName,
		Email:     n.Emails.PrimaryEmail,
		Phone:     n.Phones.PrimaryPhoneNumber,
		JobTitle:  n.JobTitle,
		City:      n.City,
		CompanyID: n.CompanyID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

type personEdges struct {
	Edges []struct {
		Node personNode `json:"node"`
	} `json:"edges"`
}

func (e personEdges) toPeople() []Person {
	out := make([]Person, 0, len(e.Edges))
	for _, edge := range e.Edges {
		out = append(out, edge.Node.toPerson())
	}
	return out
}

const personFields = `
	id
	name { firstName lastName }
	emails { primaryEmail }
	phones { primaryPhoneNumber }
	jobTitle
	city
	companyId
	createdAt
	updatedAt`

// ── person operations ───────────────────────────────────────

const createPersonDoc = `
mutation CreatePerson($data: PersonCreateInput!) {
	createPerson(data: $data) {` + personFields + `
	}
}`

const getPersonDoc = `
query GetPerson($id: UUID!) {
	person(filter: { id: { eq: $id } }) {` + personFields + `
	}
}`

const updatePersonDoc = `
mutation UpdatePerson($id: UUID!, $data: PersonUpdateInput!) {
	updatePerson(id: $id, data: $data) {` + personFields + `
	}
}`

const deletePersonDoc = `
mutation DeletePerson($id: UUID!) {
	deletePerson(id: $id) { id }
}`

const listPeopleDoc = `
query ListPeople($filter: PersonFilterInput, $limit: Int) {
	people(filter: $filter, first: $limit) {
		edges { node {` + personFields + `
		} }
	}
}`

func (in PersonInput) toData() map[string]any {
	data := map[string]any{}
	// Only supplied name parts go on the wire: a firstName-only update must
	// not blank the stored lastName.
	if in.FirstName != "" || in.LastName != "" {
		name := map[string]any{}
		if in.FirstName != "" {
			name["firstName"] = in.FirstName
		}
		if in.LastName != "" {
			name["lastName"] = in.LastName
		}
		data["name"] = name
	}
	if in.Email != "" {
		data["emails"] = map[string]any{"primaryEmail": in.Email}
	}
	if in.Phone != "" {
		data["phones"] = map[string]any{"primaryPhoneNumber": in.Phone}
	}
	if in.JobTitle != "" {
		data["jobTitle"] = in.JobTitle
	}
	if in.City != "" {
		data["city"] = in.City
	}
	if in.CompanyID != "" {
		data["companyId"] = in.CompanyID
	}
	return data
}

// CreatePerson creates a contact.
func (c *Client) CreatePerson(ctx context.Context, in PersonInput) (*Person, error) {
	var resp struct {
		CreatePerson personNode `json:"createPerson"`
	}
	if err := c.run(ctx, createPersonDoc, map[string]any{"data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	p := resp.CreatePerson.toPerson()
	return &p, nil
}

// GetPerson fetches a contact by id.
func (c *Client) GetPerson(ctx context.Context, id string) (*Person, error) {
	var resp struct {
		Person personNode `json:"person"`
	}
	if err := c.run(ctx, getPersonDoc, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	p := resp.Person.toPerson()
	return &p, nil
}

// UpdatePerson applies the non-empty input fields to an existing contact.
func (c *Client) UpdatePerson(ctx context.Context, id string, in PersonInput) (*Person, error) {
	var resp struct {
		UpdatePerson personNode `json:"updatePerson"`
	}
	vars := map[string]any{"id": id, "data": in.toData()}
	if err := c.run(ctx, updatePersonDoc, vars, &resp); err != nil {
		return nil, err
	}
	p := resp.UpdatePerson.toPerson()
	return &p, nil
}

// DeletePerson removes a contact.
func (c *Client) DeletePerson(ctx context.Context, id string) error {
	var resp struct {
		DeletePerson struct {
			ID string `json:"id"`
		} `json:"deletePerson"`
	}
	return c.run(ctx, deletePersonDoc, map[string]any{"id": id}, &resp)
}

// SearchPeople matches contacts whose name or primary email contains query.
func (c *Client) SearchPeople(ctx context.Context, query string, limit int) ([]Person, error) {
	pattern := "%" + query + "%"
	filter := map[string]any{
		"or": []map[string]any{
			{"name": map[string]any{"firstName": map[string]any{"ilike": pattern}}},
			{"name": map[string]any{"lastName": map[string]any{"ilike": pattern}}},
			{"emails": map[string]any{"primaryEmail": map[string]any{"ilike": pattern}}},
		},
	}
	return c.listPeople(ctx, filter, limit)
}

// ListPeople returns contacts, newest first by upstream default ordering.
func (c *Client) ListPeople(ctx context.Context, limit int) ([]Person, error) {
	return c.listPeople(ctx, nil, limit)
}

// ListPeopleByCompany returns the contacts attached to one company.
func (c *Client) ListPeopleByCompany(ctx context.Context, companyID string, limit int) ([]Person, error) {
	filter := map[string]any{"companyId": map[string]any{"eq": companyID}}
	return c.listPeople(ctx, filter, limit)
}

// ListPeopleWithoutCompany returns contacts with no company relation
// (orphan detection is absence of the foreign key).
func (c *Client) ListPeopleWithoutCompany(ctx context.Context, limit int) ([]Person, error) {
	filter := map[string]any{"companyId": map[string]any{"is": "NULL"}}
	return c.listPeople(ctx, filter, limit)
}

func (c *Client) listPeople(ctx context.Context, filter map[string]any, limit int) ([]Person, error) {
	if limit <= 0 {
		limit = 50
	}
	var resp struct {
		People personEdges `json:"people"`
	}
	vars := map[string]any{"limit": limit}
	if filter != nil {
		vars["filter"] = filter
	}
	if err := c.run(ctx, listPeopleDoc, vars, &resp); err != nil {
		return nil, err
	}
	return resp.People.toPeople(), nil
}
