package mcpserver

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/render"
	"github.com/mark3labs/mcp-go/mcp"
)

const jsonMIME = "application/json"

// resourceFetch loads the record named by the captured URI segments.
type resourceFetch func(ctx context.Context, ids []string) (any, error)

type resourceDef struct {
	template    string
	name        string
	description string
	pattern     *regexp.Regexp
	fetch       resourceFetch
}

func (s *Server) resourceDefs() []resourceDef {
	return []resourceDef{
		{
			template:    "canvas://course/{course_id}",
			name:        "Course Details",
			description: "Access detailed information about a specific course",
			pattern:     regexp.MustCompile(`^canvas://course/([^/]+)$`),
			fetch: func(ctx context.Context, ids []string) (any, error) {
				return s.api.GetCourse(ctx, ids[0])
			},
		},
		{
			template:    "canvas://assignment/{course_id}/{assignment_id}",
			name:        "Assignment Details",
			description: "Access detailed information about a specific assignment",
			pattern:     regexp.MustCompile(`^canvas://assignment/([^/]+)/([^/]+)$`),
			fetch: func(ctx context.Context, ids []string) (any, error) {
				return s.api.GetAssignment(ctx, ids[0], ids[1])
			},
		},
		{
			template:    "canvas://announcement/{course_id}/{announcement_id}",
			name:        "Announcement Details",
			description: "Access detailed information about a specific announcement",
			pattern:     regexp.MustCompile(`^canvas://announcement/([^/]+)/([^/]+)$`),
			fetch: func(ctx context.Context, ids []string) (any, error) {
				return s.api.GetAnnouncement(ctx, ids[0], ids[1])
			},
		},
		{
			template:    "canvas://file/{file_id}",
			name:        "File Details",
			description: "Access detailed information about a specific file",
			pattern:     regexp.MustCompile(`^canvas://file/([^/]+)$`),
			fetch: func(ctx context.Context, ids []string) (any, error) {
				return s.api.GetFile(ctx, ids[0])
			},
		},
	}
}

func (s *Server) registerResources() {
	for _, def := range s.resourceDefs() {
		s.mcp.AddResourceTemplate(
			mcp.NewResourceTemplate(def.template, def.name,
				mcp.WithTemplateDescription(def.description),
				mcp.WithTemplateMIMEType(jsonMIME),
			),
			s.readResource(def),
		)
	}
}

func (s *Server) readResource(def resourceDef) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := req.Params.URI
		m := def.pattern.FindStringSubmatch(uri)
		if m == nil {
			return nil, fmt.Errorf("invalid resource URI: %s", uri)
		}

		record, err := def.fetch(ctx, m[1:])
		if err != nil {
			s.logger.Warn().Err(err).Str("uri", uri).Str("kind", string(client.KindOf(err))).Msg("Resource read failed")
			return nil, fmt.Errorf("failed to read resource: %s", client.UserMessage(err))
		}

		text, err := render.JSON(record)
		if err != nil {
			return nil, fmt.Errorf("encode resource %s: %w", uri, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: uri, MIMEType: jsonMIME, Text: text},
		}, nil
	}
}
