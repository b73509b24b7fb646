package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/report"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Interviews *interview.Service
	Reports    *report.Builder
	UserID     string
}

// NewMCPServer creates an MCP server exposing the interview workflow to
// agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"prepstage",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("prepstage — local mock-interview practice: generate interviews, track answered questions, and read feedback reports."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("create_interview",
			mcp.WithDescription("Generate a new mock interview for a job position."),
			mcp.WithString("position", mcp.Description("Job position title"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Job description text")),
			mcp.WithNumber("experience_years", mcp.Description("Years of experience expected")),
			mcp.WithString("tech_stack", mcp.Description("Comma-separated technology list")),
			mcp.WithArray("sections", mcp.Description("Section types to generate (Technical, HR, Behavioral, SoftSkills); defaults to all")),
		),
		mcpCreateInterview(deps),
	)

	s.AddTool(
		mcp.NewTool("list_interviews",
			mcp.WithDescription("List stored interviews with answered-question progress."),
		),
		mcpListInterviews(deps),
	)

	s.AddTool(
		mcp.NewTool("interview_report",
			mcp.WithDescription("Return the feedback report for one interview: overall rating, per-section answers, and proctoring flags."),
			mcp.WithString("interview_id", mcp.Description("Interview id"), mcp.Required()),
		),
		mcpInterviewReport(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"prepstage://recent",
			"Recent Interviews",
			mcp.WithResourceDescription("Last 10 interviews (id, position, created)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpCreateInterview(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		position, err := req.RequireString("position")
		if err != nil {
			return mcpError("position is required"), nil
		}

		types, err := parseSections(req.GetStringSlice("sections", nil))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		job := interview.JobDetails{
			Position:        position,
			Description:     req.GetString("description", ""),
			ExperienceYears: req.GetInt("experience_years", 0),
			TechStack:       req.GetString("tech_stack", ""),
		}
		iv, err := deps.Interviews.Create(ctx, deps.UserID, job, types)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to generate interview: %v", err)), nil
		}

		b, err := json.Marshal(iv)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal interview: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListInterviews(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := deps.Reports.Dashboard(ctx, deps.UserID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list interviews: %v", err)), nil
		}
		if len(entries) == 0 {
			return mcpText("[]"), nil
		}

		type entrySummary struct {
			ID          string `json:"id"`
			Position    string `json:"position"`
			Answered    int    `json:"answered"`
			Total       int    `json:"total"`
			AllAnswered bool   `json:"all_answered"`
			CreatedAt   string `json:"created_at"`
		}
		summaries := make([]entrySummary, len(entries))
		for i, e := range entries {
			summaries[i] = entrySummary{
				ID:          e.Interview.ID,
				Position:    e.Interview.Position,
				Answered:    e.Answered,
				Total:       e.Total,
				AllAnswered: e.AllAnswered,
				CreatedAt:   e.Interview.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal interviews: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpInterviewReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("interview_id")
		if err != nil {
			return mcpError("interview_id is required"), nil
		}

		rep, err := deps.Reports.Interview(id, deps.UserID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to build report: %v", err)), nil
		}

		b, err := json.Marshal(rep)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interviews, err := deps.Interviews.List(deps.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list interviews: %w", err)
		}
		if len(interviews) > 10 {
			interviews = interviews[:10]
		}

		type summary struct {
			ID        string `json:"id"`
			Position  string `json:"position"`
			CreatedAt string `json:"created_at"`
		}
		summaries := make([]summary, len(interviews))
		for i, iv := range interviews {
			summaries[i] = summary{
				ID:        iv.ID,
				Position:  iv.Position,
				CreatedAt: iv.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interviews: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
