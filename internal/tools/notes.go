package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

func registerNoteTools(srv *server.MCPServer, client *twenty.Client) {
	srv.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("body", mcp.Description("Note body (markdown)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		note, err := client.CreateNote(ctx, twenty.NoteInput{
			Title: title,
			Body:  req.GetString("body", ""),
		})
		if err != nil {
			return errResult("creating note", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created note %q (ID: %s)", note.Title, note.ID)), nil
	})

	srv.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Fetch a note by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		note, err := client.GetNote(ctx, id)
		if err != nil {
			return errResult("fetching note", err), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Note: %s\n", note.Title)
		writeField(&b, "ID", note.ID)
		writeField(&b, "Body", note.Body)
		writeField(&b, "Created", formatTime(note.CreatedAt))
		return mcp.NewToolResultText(b.String()), nil
	})

	srv.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note's title or body."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("body", mcp.Description("New body")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		note, err := client.UpdateNote(ctx, id, twenty.NoteInput{
			Title: req.GetString("title", ""),
			Body:  req.GetString("body", ""),
		})
		if err != nil {
			return errResult("updating note", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated note %q (ID: %s)", note.Title, note.ID)), nil
	})

	srv.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeleteNote(ctx, id); err != nil {
			return errResult("deleting note", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted note %s", id)), nil
	})
}
