package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

var taskStatuses = []string{twenty.TaskTodo, twenty.TaskInProgress, twenty.TaskDone}

func registerTaskTools(srv *server.MCPServer, client *twenty.Client) {
	srv.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("body", mcp.Description("Task details (markdown)")),
		mcp.WithString("dueDate", mcp.Description("Due date, RFC 3339 or YYYY-MM-DD")),
		mcp.WithString("assigneeId", mcp.Description("Workspace member to assign")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := twenty.TaskInput{
			Title:      title,
			Body:       req.GetString("body", ""),
			Status:     twenty.TaskTodo,
			AssigneeID: req.GetString("assigneeId", ""),
		}
		if raw := req.GetString("dueDate", ""); raw != "" {
			due, err := parseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Error parsing dueDate: %v", err)), nil
			}
			in.DueAt = &due
		}
		task, err := client.CreateTask(ctx, in)
		if err != nil {
			return errResult("creating task", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created task %q (ID: %s)", task.Title, task.ID)), nil
	})

	srv.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Fetch a task by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		task, err := client.GetTask(ctx, id)
		if err != nil {
			return errResult("fetching task", err), nil
		}
		return mcp.NewToolResultText(formatTask(*task)), nil
	})

	srv.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update fields on an existing task, including its status."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("body", mcp.Description("New details")),
		mcp.WithString("status", mcp.Description("New status"), mcp.Enum(taskStatuses...)),
		mcp.WithString("dueDate", mcp.Description("New due date")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := twenty.TaskInput{
			Title:  req.GetString("title", ""),
			Body:   req.GetString("body", ""),
			Status: req.GetString("status", ""),
		}
		if raw := req.GetString("dueDate", ""); raw != "" {
			due, err := parseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Error parsing dueDate: %v", err)), nil
			}
			in.DueAt = &due
		}
		task, err := client.UpdateTask(ctx, id, in)
		if err != nil {
			return errResult("updating task", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated task %q (status %s)", task.Title, task.Status)), nil
	})

	srv.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeleteTask(ctx, id); err != nil {
			return errResult("deleting task", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted task %s", id)), nil
	})

	srv.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally filtered by status."),
		mcp.WithString("status", mcp.Description("Only tasks in this status"), mcp.Enum(taskStatuses...)),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, err := client.ListTasks(ctx, req.GetString("status", ""), req.GetInt("limit", 50))
		if err != nil {
			return errResult("listing tasks", err), nil
		}
		if len(tasks) == 0 {
			return mcp.NewToolResultText("No tasks found"), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Tasks (%d):\n", len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(&b, "- [%s] %s", t.Status, t.Title)
			if t.DueAt != nil {
				fmt.Fprintf(&b, " (due %s)", t.DueAt.Format("2006-01-02"))
			}
			fmt.Fprintf(&b, " (ID: %s)\n", t.ID)
		}
		return mcp.NewToolResultText(b.String()), nil
	})
}

func formatTask(t twenty.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", t.Title)
	writeField(&b, "ID", t.ID)
	writeField(&b, "Status", t.Status)
	writeField(&b, "Details", t.Body)
	if t.DueAt != nil {
		fmt.Fprintf(&b, "Due: %s\n", t.DueAt.Format("2006-01-02"))
	}
	writeField(&b, "Assignee ID", t.AssigneeID)
	writeField(&b, "Created", formatTime(t.CreatedAt))
	return b.String()
}
