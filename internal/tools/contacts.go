package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

func registerContactTools(srv *server.MCPServer, client *twenty.Client) {
	srv.AddTool(mcp.NewTool("create_contact",
		mcp.WithDescription("Create a new contact in the CRM."),
		mcp.WithString("firstName", mcp.Required(), mcp.Description("Contact's first name")),
		mcp.WithString("lastName", mcp.Description("Contact's last name")),
		mcp.WithString("email", mcp.Description("Primary email address")),
		mcp.WithString("phone", mcp.Description("Primary phone number")),
		mcp.WithString("jobTitle", mcp.Description("Job title")),
		mcp.WithString("city", mcp.Description("City")),
		mcp.WithString("companyId", mcp.Description("ID of the company this contact belongs to")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		firstName, err := req.RequireString("firstName")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		person, err := client.CreatePerson(ctx, twenty.PersonInput{
			FirstName: firstName,
			LastName:  req.GetString("lastName", ""),
			Email:     req.GetString("email", ""),
			Phone:     req.GetString("phone", ""),
			JobTitle:  req.GetString("jobTitle", ""),
			City:      req.GetString("city", ""),
			CompanyID: req.GetString("companyId", ""),
		})
		if err != nil {
			return errResult("creating contact", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created contact %s (ID: %s)", person.FullName(), person.ID)), nil
	})

	srv.AddTool(mcp.NewTool("get_contact",
		mcp.WithDescription("Fetch a contact by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		person, err := client.GetPerson(ctx, id)
		if err != nil {
			return errResult("fetching contact", err), nil
		}
		return mcp.NewToolResultText(formatPerson(*person)), nil
	})

	srv.AddTool(mcp.NewTool("update_contact",
		mcp.WithDescription("Update fields on an existing contact. Only provided fields change."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
		mcp.WithString("firstName", mcp.Description("New first name")),
		mcp.WithString("lastName", mcp.Description("New last name")),
		mcp.WithString("email", mcp.Description("New primary email")),
		mcp.WithString("phone", mcp.Description("New primary phone")),
		mcp.WithString("jobTitle", mcp.Description("New job title")),
		mcp.WithString("city", mcp.Description("New city")),
		mcp.WithString("companyId", mcp.Description("New company ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		person, err := client.UpdatePerson(ctx, id, twenty.PersonInput{
			FirstName: req.GetString("firstName", ""),
			LastName:  req.GetString("lastName", ""),
			Email:     req.GetString("email", ""),
			Phone:     req.GetString("phone", ""),
			JobTitle:  req.GetString("jobTitle", ""),
			City:      req.GetString("city", ""),
			CompanyID: req.GetString("companyId", ""),
		})
		if err != nil {
			return errResult("updating contact", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated contact %s (ID: %s)", person.FullName(), person.ID)), nil
	})

	srv.AddTool(mcp.NewTool("delete_contact",
		mcp.WithDescription("Delete a contact by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeletePerson(ctx, id); err != nil {
			return errResult("deleting contact", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted contact %s", id)), nil
	})

	srv.AddTool(mcp.NewTool("search_contacts",
		mcp.WithDescription("Search contacts by name or email substring."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		people, err := client.SearchPeople(ctx, query, req.GetInt("limit", 50))
		if err != nil {
			return errResult("searching contacts", err), nil
		}
		return mcp.NewToolResultText(formatPersonList(people, fmt.Sprintf("Contacts matching %q", query))), nil
	})

	srv.AddTool(mcp.NewTool("list_contacts",
		mcp.WithDescription("List contacts."),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		people, err := client.ListPeople(ctx, req.GetInt("limit", 50))
		if err != nil {
			return errResult("listing contacts", err), nil
		}
		return mcp.NewToolResultText(formatPersonList(people, "Contacts")), nil
	})
}

func formatPerson(p twenty.Person) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contact: %s\n", p.FullName())
	writeField(&b, "ID", p.ID)
	writeField(&b, "Email", p.Email)
	writeField(&b, "Phone", p.Phone)
	writeField(&b, "Job title", p.JobTitle)
	writeField(&b, "City", p.City)
	writeField(&b, "Company ID", p.CompanyID)
	writeField(&b, "Created", formatTime(p.CreatedAt))
	return b.String()
}

func formatPersonList(people []twenty.Person, heading string) string {
	if len(people) == 0 {
		return heading + ": none found"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", heading, len(people))
	for _, p := range people {
		fmt.Fprintf(&b, "- %s", p.FullName())
		if p.Email != "" {
			fmt.Fprintf(&b, " <%s>", p.Email)
		}
		fmt.Fprintf(&b, " (ID: %s)\n", p.ID)
	}
	return b.String()
}
