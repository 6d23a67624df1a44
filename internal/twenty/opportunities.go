package twenty

import (
	"context"
	"time"
)

type opportunityNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Amount struct {
		AmountMicros int64  `json:"amountMicros"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"amount"`
	CloseDate        *time.Time `json:"closeDate"`
	CompanyID        string     `json:"companyId"`
	PointOfContactID string     `json:"pointOfContactId"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (n opportunityNode) toOpportunity() Opportunity {
	return Opportunity{
		ID:           n.ID,
		Name:         n.Name,
		Stage:        n.Stage,
		AmountMicros: n.Amount.AmountMicros,
		Currency:     n.Amount.CurrencyCode,
		CloseDate:    n.CloseDate,
		CompanyID:    n.CompanyID,
		ContactID:    n.PointOfContactID,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

const opportunityFields = `
	id
	name
	stage
	amount { amountMicros currencyCode }
	closeDate
	companyId
	pointOfContactId
	createdAt
	updatedAt`

const createOpportunityDoc = `
mutation CreateOpportunity($data: OpportunityCreateInput!) {
	createOpportunity(data: $data) {` + opportunityFields + `
	}
}`

const getOpportunityDoc = `
query GetOpportunity($id: UUID!) {
	opportunity(filter: { id: { eq: $id } }) {` + opportunityFields + `
	}
}`

const updateOpportunityDoc = `
mutation UpdateOpportunity($id: UUID!, $data: OpportunityUpdateInput!) {
	updateOpportunity(id: $id, data: $data) {` + opportunityFields + `
	}
}`

const deleteOpportunityDoc = `
mutation DeleteOpportunity($id: UUID!) {
	deleteOpportunity(id: $id) { id }
}`

const listOpportunitiesDoc = `
query ListOpportunities($filter: OpportunityFilterInput, $limit: Int) {
	opportunities(filter: $filter, first: $limit) {
		edges { node {` + opportunityFields + `
		} }
	}
}`

func (in OpportunityInput) toData() map[string]any {
	data := map[string]any{}
	if in.Name != "" {
		data["name"] = in.Name
	}
	if in.Stage != "" {
		data["stage"] = in.Stage
	}
	if in.Amount != nil {
		currency := in.Currency
		if currency == "" {
			currency = "USD"
		}
		data["amount"] = map[string]any{
			"amountMicros": int64(*in.Amount * 1e6),
			"currencyCode": currency,
		}
	}
	if in.CloseDate != nil {
		data["closeDate"] = in.CloseDate.UTC().Format(time.RFC3339)
	}
	if in.CompanyID != "" {
		data["companyId"] = in.CompanyID
	}
	if in.ContactID != "" {
		data["pointOfContactId"] = in.ContactID
	}
	return data
}

// CreateOpportunity creates a deal.
func (c *Client) CreateOpportunity(ctx context.Context, in OpportunityInput) (*Opportunity, error) {
	var resp struct {
		CreateOpportunity opportunityNode `json:"createOpportunity"`
	}
	if err := c.run(ctx, createOpportunityDoc, map[string]any{"data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	o := resp.CreateOpportunity.toOpportunity()
	return &o, nil
}

// GetOpportunity fetches one deal by id.
func (c *Client) GetOpportunity(ctx context.Context, id string) (*Opportunity, error) {
	var resp struct {
		Opportunity opportunityNode `json:"opportunity"`
	}
	if err := c.run(ctx, getOpportunityDoc, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	o := resp.Opportunity.toOpportunity()
	return &o, nil
}

// UpdateOpportunity applies non-empty input fields to an existing deal.
func (c *Client) UpdateOpportunity(ctx context.Context, id string, in OpportunityInput) (*Opportunity, error) {
	var resp struct {
		UpdateOpportunity opportunityNode `json:"updateOpportunity"`
	}
	if err := c.run(ctx, updateOpportunityDoc, map[string]any{"id": id, "data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	o := resp.UpdateOpportunity.toOpportunity()
	return &o, nil
}

// DeleteOpportunity removes a deal.
func (c *Client) DeleteOpportunity(ctx context.Context, id string) error {
	var resp struct {
		DeleteOpportunity struct {
			ID string `json:"id"`
		} `json:"deleteOpportunity"`
	}
	return c.run(ctx, deleteOpportunityDoc, map[string]any{"id": id}, &resp)
}

// ListOpportunities returns deals, optionally restricted to one company.
func (c *Client) ListOpportunities(ctx context.Context, companyID string, limit int) ([]Opportunity, error) {
	var filter map[string]any
	if companyID != "" {
		filter = map[string]any{"companyId": map[string]any{"eq": companyID}}
	}
	return c.listOpportunities(ctx, filter, limit)
}

// ListOpportunitiesByContact returns deals whose point of contact is the
// given person.
func (c *Client) ListOpportunitiesByContact(ctx context.Context, contactID string, limit int) ([]Opportunity, error) {
	filter := map[string]any{"pointOfContactId": map[string]any{"eq": contactID}}
	return c.listOpportunities(ctx, filter, limit)
}

func (c *Client) listOpportunities(ctx context.Context, filter map[string]any, limit int) ([]Opportunity, error) {
	if limit <= 0 {
		limit = 100
	}
	var resp struct {
		Opportunities struct {
			Edges []struct {
				Node opportunityNode `json:"node"`
			} `json:"edges"`
		} `json:"opportunities"`
	}
	vars := map[string]any{"limit": limit}
	if filter != nil {
		vars["filter"] = filter
	}
	if err := c.run(ctx, listOpportunitiesDoc, vars, &resp); err != nil {
		return nil, err
	}
	out := make([]Opportunity, 0, len(resp.Opportunities.Edges))
	for _, edge := range resp.Opportunities.Edges {
		out = append(out, edge.Node.toOpportunity())
	}
	return out, nil
}
