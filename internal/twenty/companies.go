package twenty

import (
	"context"
	"time"
)

type companyNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DomainName struct {
		PrimaryLinkUrl string `json:"primaryLinkUrl"`
	} `json:"domainName"`
	Address struct {
		AddressCity string `json:"addressCity"`
	} `json:"address"`
	Employees int `json:"employees"`
	AnnualRecurringRevenue struct {
		AmountMicros int64 `json:"amountMicros"`
	} `json:"annualRecurringRevenue"`
	IdealCustomerProfile bool      `json:"idealCustomerProfile"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (n companyNode) toCompany() Company {
	return Company{
		ID:              n.ID,
		Name:            n.Name,
		DomainName:      n.DomainName.PrimaryLinkUrl,
		Address:         n.Address.AddressCity,
		Employees:       n.Employees,
		AnnualRecurring: float64(n.AnnualRecurringRevenue.AmountMicros) / 1e6,
		IdealCustomer:   n.IdealCustomerProfile,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

const companyFields = `
	id
	name
	domainName { primaryLinkUrl }
	address { addressCity }
	employees
	annualRecurringRevenue { amountMicros }
	idealCustomerProfile
	createdAt
	updatedAt`

const createCompanyDoc = `
mutation CreateCompany($data: CompanyCreateInput!) {
	createCompany(data: $data) {` + companyFields + `
	}
}`

const getCompanyDoc = `
query GetCompany($id: UUID!) {
	company(filter: { id: { eq: $id } }) {` + companyFields + `
	}
}`

const updateCompanyDoc = `
mutation UpdateCompany($id: UUID!, $data: CompanyUpdateInput!) {
	updateCompany(id: $id, data: $data) {` + companyFields + `
	}
}`

const deleteCompanyDoc = `
mutation DeleteCompany($id: UUID!) {
	deleteCompany(id: $id) { id }
}`

const listCompaniesDoc = `
query ListCompanies($filter: CompanyFilterInput, $limit: Int) {
	companies(filter: $filter, first: $limit) {
		edges { node {` + companyFields + `
		} }
	}
}`

func (in CompanyInput) toData() map[string]any {
	data := map[string]any{}
	if in.Name != "" {
		data["name"] = in.Name
	}
	if in.DomainName != "" {
		data["domainName"] = map[string]any{"primaryLinkUrl": in.DomainName}
	}
	if in.Address != "" {
		data["address"] = map[string]any{"addressCity": in.Address}
	}
	if in.Employees != nil {
		data["employees"] = *in.Employees
	}
	if in.AnnualRecurring != nil {
		data["annualRecurringRevenue"] = map[string]any{"amountMicros": int64(*in.AnnualRecurring * 1e6)}
	}
	if in.IdealCustomer != nil {
		data["idealCustomerProfile"] = *in.IdealCustomer
	}
	return data
}

// CreateCompany creates a company record.
func (c *Client) CreateCompany(ctx context.Context, in CompanyInput) (*Company, error) {
	var resp struct {
		CreateCompany companyNode `json:"createCompany"`
	}
	if err := c.run(ctx, createCompanyDoc, map[string]any{"data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	co := resp.CreateCompany.toCompany()
	return &co, nil
}

// GetCompany fetches one company by id.
func (c *Client) GetCompany(ctx context.Context, id string) (*Company, error) {
	var resp struct {
		Company companyNode `json:"company"`
	}
	if err := c.run(ctx, getCompanyDoc, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	co := resp.Company.toCompany()
	return &co, nil
}

// UpdateCompany applies non-empty input fields to an existing company.
func (c *Client) UpdateCompany(ctx context.Context, id string, in CompanyInput) (*Company, error) {
	var resp struct {
		UpdateCompany companyNode `json:"updateCompany"`
	}
	if err := c.run(ctx, updateCompanyDoc, map[string]any{"id": id, "data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	co := resp.UpdateCompany.toCompany()
	return &co, nil
}

// DeleteCompany removes a company record.
func (c *Client) DeleteCompany(ctx context.Context, id string) error {
	var resp struct {
		DeleteCompany struct {
			ID string `json:"id"`
		} `json:"deleteCompany"`
	}
	return c.run(ctx, deleteCompanyDoc, map[string]any{"id": id}, &resp)
}

// SearchCompanies matches companies whose name contains query.
func (c *Client) SearchCompanies(ctx context.Context, query string, limit int) ([]Company, error) {
	filter := map[string]any{"name": map[string]any{"ilike": "%" + query + "%"}}
	return c.listCompanies(ctx, filter, limit)
}

// ListCompanies returns company records.
func (c *Client) ListCompanies(ctx context.Context, limit int) ([]Company, error) {
	return c.listCompanies(ctx, nil, limit)
}

func (c *Client) listCompanies(ctx context.Context, filter map[string]any, limit int) ([]Company, error) {
	if limit <= 0 {
		limit = 50
	}
	var resp struct {
		Companies struct {
			Edges []struct {
				Node companyNode `json:"node"`
			} `json:"edges"`
		} `json:"companies"`
	}
	vars := map[string]any{"limit": limit}
	if filter != nil {
		vars["filter"] = filter
	}
	if err := c.run(ctx, listCompaniesDoc, vars, &resp); err != nil {
		return nil, err
	}
	out := make([]Company, 0, len(resp.Companies.Edges))
	for _, edge := range resp.Companies.Edges {
		out = append(out, edge.Node.toCompany())
	}
	return out, nil
}
