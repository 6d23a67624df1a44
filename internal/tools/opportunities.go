package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

func registerOpportunityTools(srv *server.MCPServer, client *twenty.Client) {
	srv.AddTool(mcp.NewTool("create_opportunity",
		mcp.WithDescription("Create a new opportunity (deal) in the pipeline."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Deal name")),
		mcp.WithString("stage", mcp.Description("Pipeline stage"), mcp.Enum(twenty.Stages...)),
		mcp.WithNumber("amount", mcp.Description("Deal amount in currency units")),
		mcp.WithString("currency", mcp.Description("ISO currency code (default USD)")),
		mcp.WithString("closeDate", mcp.Description("Expected close date, RFC 3339 or YYYY-MM-DD")),
		mcp.WithString("companyId", mcp.Description("Related company ID")),
		mcp.WithString("contactId", mcp.Description("Point-of-contact person ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := twenty.OpportunityInput{
			Name:      name,
			Stage:     req.GetString("stage", twenty.StageNew),
			Currency:  req.GetString("currency", ""),
			CompanyID: req.GetString("companyId", ""),
			ContactID: req.GetString("contactId", ""),
		}
		if amount := req.GetFloat("amount", -1); amount >= 0 {
			in.Amount = &amount
		}
		if raw := req.GetString("closeDate", ""); raw != "" {
			closeDate, err := parseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Error parsing closeDate: %v", err)), nil
			}
			in.CloseDate = &closeDate
		}
		opp, err := client.CreateOpportunity(ctx, in)
		if err != nil {
			return errResult("creating opportunity", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created opportunity %s in stage %s (ID: %s)", opp.Name, opp.Stage, opp.ID)), nil
	})

	srv.AddTool(mcp.NewTool("get_opportunity",
		mcp.WithDescription("Fetch an opportunity by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Opportunity ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opp, err := client.GetOpportunity(ctx, id)
		if err != nil {
			return errResult("fetching opportunity", err), nil
		}
		return mcp.NewToolResultText(formatOpportunity(*opp)), nil
	})

	srv.AddTool(mcp.NewTool("update_opportunity",
		mcp.WithDescription("Update fields on an existing opportunity. Only provided fields change."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Opportunity ID")),
		mcp.WithString("name", mcp.Description("New deal name")),
		mcp.WithString("stage", mcp.Description("New pipeline stage"), mcp.Enum(twenty.Stages...)),
		mcp.WithNumber("amount", mcp.Description("New amount in currency units")),
		mcp.WithString("closeDate", mcp.Description("New expected close date")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := twenty.OpportunityInput{
			Name:  req.GetString("name", ""),
			Stage: req.GetString("stage", ""),
		}
		if amount := req.GetFloat("amount", -1); amount >= 0 {
			in.Amount = &amount
		}
		if raw := req.GetString("closeDate", ""); raw != "" {
			closeDate, err := parseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Error parsing closeDate: %v", err)), nil
			}
			in.CloseDate = &closeDate
		}
		opp, err := client.UpdateOpportunity(ctx, id, in)
		if err != nil {
			return errResult("updating opportunity", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated opportunity %s (stage %s)", opp.Name, opp.Stage)), nil
	})

	srv.AddTool(mcp.NewTool("delete_opportunity",
		mcp.WithDescription("Delete an opportunity by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Opportunity ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeleteOpportunity(ctx, id); err != nil {
			return errResult("deleting opportunity", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted opportunity %s", id)), nil
	})

	srv.AddTool(mcp.NewTool("list_opportunities_by_stage",
		mcp.WithDescription("List opportunities grouped by pipeline stage, with per-stage totals."),
		mcp.WithString("companyId", mcp.Description("Restrict to one company")),
		mcp.WithNumber("limit", mcp.Description("Maximum deals to aggregate (default 100)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opps, err := client.ListOpportunities(ctx, req.GetString("companyId", ""), req.GetInt("limit", 100))
		if err != nil {
			return errResult("listing opportunities", err), nil
		}
		return mcp.NewToolResultText(formatPipeline(opps)), nil
	})
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func formatOpportunity(o twenty.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opportunity: %s\n", o.Name)
	writeField(&b, "ID", o.ID)
	writeField(&b, "Stage", o.Stage)
	if o.AmountMicros != 0 {
		fmt.Fprintf(&b, "Amount: %.2f %s\n", o.Amount(), o.Currency)
	}
	if o.CloseDate != nil {
		fmt.Fprintf(&b, "Close date: %s\n", o.CloseDate.Format("2006-01-02"))
	}
	writeField(&b, "Company ID", o.CompanyID)
	writeField(&b, "Contact ID", o.ContactID)
	writeField(&b, "Created", formatTime(o.CreatedAt))
	return b.String()
}

// formatPipeline groups deals by stage in funnel order and sums amounts.
func formatPipeline(opps []twenty.Opportunity) string {
	if len(opps) == 0 {
		return "Pipeline is empty"
	}

	byStage := make(map[string][]twenty.Opportunity)
	for _, o := range opps {
		byStage[o.Stage] = append(byStage[o.Stage], o)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline (%d deals):\n", len(opps))
	for _, stage := range twenty.Stages {
		deals := byStage[stage]
		if len(deals) == 0 {
			continue
		}
		var total float64
		for _, d := range deals {
			total += d.Amount()
		}
		fmt.Fprintf(&b, "\n%s (%d deals, total %.2f):\n", stage, len(deals), total)
		for _, d := range deals {
			fmt.Fprintf(&b, "- %s (%.2f, ID: %s)\n", d.Name, d.Amount(), d.ID)
		}
		delete(byStage, stage)
	}
	// Stages outside the known funnel still show up.
	for stage, deals := range byStage {
		fmt.Fprintf(&b, "\n%s (%d deals):\n", stage, len(deals))
		for _, d := range deals {
			fmt.Fprintf(&b, "- %s (ID: %s)\n", d.Name, d.ID)
		}
	}
	return b.String()
}
