package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

func registerInsightTools(srv *server.MCPServer, client *twenty.Client) {
	srv.AddTool(mcp.NewTool("list_activities",
		mcp.WithDescription("List recent tasks and notes as a single timeline, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 20)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		activities, err := client.ListActivities(ctx, req.GetInt("limit", 20))
		if err != nil {
			return errResult("listing activities", err), nil
		}
		if len(activities) == 0 {
			return mcp.NewToolResultText("No recent activity"), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Recent activity (%d):\n", len(activities))
		for _, a := range activities {
			fmt.Fprintf(&b, "- [%s] %s", a.Kind, a.Title)
			if a.Detail != "" {
				fmt.Fprintf(&b, ": %s", firstLine(a.Detail))
			}
			fmt.Fprintf(&b, " (%s, ID: %s)\n", formatTime(a.Timestamp), a.ID)
		}
		return mcp.NewToolResultText(b.String()), nil
	})

	srv.AddTool(mcp.NewTool("get_relationship_summary",
		mcp.WithDescription("Summarize a contact's relationship: profile, employer, and open deals."),
		mcp.WithString("contactId", mcp.Required(), mcp.Description("Contact ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contactID, err := req.RequireString("contactId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		person, err := client.GetPerson(ctx, contactID)
		if err != nil {
			return errResult("fetching contact", err), nil
		}

		var b strings.Builder
		b.WriteString(formatPerson(*person))

		if person.CompanyID != "" {
			company, err := client.GetCompany(ctx, person.CompanyID)
			if err != nil {
				fmt.Fprintf(&b, "\nEmployer: unavailable (%v)\n", err)
			} else {
				fmt.Fprintf(&b, "\nEmployer: %s", company.Name)
				if company.DomainName != "" {
					fmt.Fprintf(&b, " (%s)", company.DomainName)
				}
				b.WriteString("\n")
			}
		} else {
			b.WriteString("\nEmployer: none on record\n")
		}

		opps, err := client.ListOpportunitiesByContact(ctx, contactID, 50)
		if err != nil {
			return errResult("listing contact deals", err), nil
		}
		if len(opps) == 0 {
			b.WriteString("\nDeals: none\n")
		} else {
			var total float64
			fmt.Fprintf(&b, "\nDeals (%d):\n", len(opps))
			for _, o := range opps {
				total += o.Amount()
				fmt.Fprintf(&b, "- %s [%s]", o.Name, o.Stage)
				if o.AmountMicros != 0 {
					fmt.Fprintf(&b, " %.2f %s", o.Amount(), o.Currency)
				}
				fmt.Fprintf(&b, " (ID: %s)\n", o.ID)
			}
			fmt.Fprintf(&b, "Total pipeline value: %.2f\n", total)
		}
		return mcp.NewToolResultText(b.String()), nil
	})

	srv.AddTool(mcp.NewTool("find_orphaned_contacts",
		mcp.WithDescription("Find contacts that are not attached to any company."),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		people, err := client.ListPeopleWithoutCompany(ctx, req.GetInt("limit", 50))
		if err != nil {
			return errResult("finding orphaned contacts", err), nil
		}
		return mcp.NewToolResultText(formatPersonList(people, "Contacts without a company")), nil
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}
