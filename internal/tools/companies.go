package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

func registerCompanyTools(srv *server.MCPServer, client *twenty.Client) {
	srv.AddTool(mcp.NewTool("create_company",
		mcp.WithDescription("Create a new company in the CRM."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Company name")),
		mcp.WithString("domainName", mcp.Description("Company website URL")),
		mcp.WithString("address", mcp.Description("City of the main office")),
		mcp.WithNumber("employees", mcp.Description("Employee count")),
		mcp.WithNumber("annualRecurringRevenue", mcp.Description("Annual recurring revenue")),
		mcp.WithBoolean("idealCustomerProfile", mcp.Description("Whether the company matches the ideal customer profile")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := twenty.CompanyInput{
			Name:       name,
			DomainName: req.GetString("domainName", ""),
			Address:    req.GetString("address", ""),
		}
		if n := req.GetInt("employees", -1); n >= 0 {
			in.Employees = &n
		}
		if arr := req.GetFloat("annualRecurringRevenue", -1); arr >= 0 {
			in.AnnualRecurring = &arr
		}
		icp := req.GetBool("idealCustomerProfile", false)
		in.IdealCustomer = &icp

		company, err := client.CreateCompany(ctx, in)
		if err != nil {
			return errResult("creating company", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created company %s (ID: %s)", company.Name, company.ID)), nil
	})

	srv.AddTool(mcp.NewTool("get_company",
		mcp.WithDescription("Fetch a company by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Company ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		company, err := client.GetCompany(ctx, id)
		if err != nil {
			return errResult("fetching company", err), nil
		}
		return mcp.NewToolResultText(formatCompany(*company)), nil
	})

	srv.AddTool(mcp.NewTool("update_company",
		mcp.WithDescription("Update fields on an existing company. Only provided fields change."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Company ID")),
		mcp.WithString("name", mcp.Description("New company name")),
		mcp.WithString("domainName", mcp.Description("New website URL")),
		mcp.WithString("address", mcp.Description("New office city")),
		mcp.WithNumber("employees", mcp.Description("New employee count")),
		mcp.WithNumber("annualRecurringRevenue", mcp.Description("New annual recurring revenue")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := twenty.CompanyInput{
			Name:       req.GetString("name", ""),
			DomainName: req.GetString("domainName", ""),
			Address:    req.GetString("address", ""),
		}
		if n := req.GetInt("employees", -1); n >= 0 {
			in.Employees = &n
		}
		if arr := req.GetFloat("annualRecurringRevenue", -1); arr >= 0 {
			in.AnnualRecurring = &arr
		}
		company, err := client.UpdateCompany(ctx, id, in)
		if err != nil {
			return errResult("updating company", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated company %s (ID: %s)", company.Name, company.ID)), nil
	})

	srv.AddTool(mcp.NewTool("delete_company",
		mcp.WithDescription("Delete a company by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Company ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeleteCompany(ctx, id); err != nil {
			return errResult("deleting company", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted company %s", id)), nil
	})

	srv.AddTool(mcp.NewTool("search_companies",
		mcp.WithDescription("Search companies by name substring."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		companies, err := client.SearchCompanies(ctx, query, req.GetInt("limit", 50))
		if err != nil {
			return errResult("searching companies", err), nil
		}
		if len(companies) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No companies matching %q", query)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Companies matching %q (%d):\n", query, len(companies))
		for _, c := range companies {
			fmt.Fprintf(&b, "- %s (ID: %s)\n", c.Name, c.ID)
		}
		return mcp.NewToolResultText(b.String()), nil
	})

	srv.AddTool(mcp.NewTool("get_company_contacts",
		mcp.WithDescription("List the contacts attached to a company."),
		mcp.WithString("companyId", mcp.Required(), mcp.Description("Company ID")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		companyID, err := req.RequireString("companyId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		people, err := client.ListPeopleByCompany(ctx, companyID, req.GetInt("limit", 50))
		if err != nil {
			return errResult("listing company contacts", err), nil
		}
		return mcp.NewToolResultText(formatPersonList(people, "Company contacts")), nil
	})
}

func formatCompany(c twenty.Company) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", c.Name)
	writeField(&b, "ID", c.ID)
	writeField(&b, "Website", c.DomainName)
	writeField(&b, "City", c.Address)
	if c.Employees > 0 {
		fmt.Fprintf(&b, "Employees: %d\n", c.Employees)
	}
	if c.AnnualRecurring > 0 {
		fmt.Fprintf(&b, "ARR: %.2f\n", c.AnnualRecurring)
	}
	fmt.Fprintf(&b, "Ideal customer: %t\n", c.IdealCustomer)
	writeField(&b, "Created", formatTime(c.CreatedAt))
	return b.String()
}
