package content

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
)

// WeekResult is the outcome of resolving a week token. When Found is false
// Available lists every module of the course.
type WeekResult struct {
	CourseID  string
	Token     string
	Found     bool
	Module    *canvas.Module
	Result    *Result
	Available []canvas.Module
}

// WeekResolver maps "week N" tokens to modules.
type WeekResolver struct {
	source     Source
	aggregator *Aggregator
}

// NewWeekResolver creates a resolver that extracts matches with aggregator.
func NewWeekResolver(source Source, aggregator *Aggregator) *WeekResolver {
	return &WeekResolver{source: source, aggregator: aggregator}
}

// ResolveWeek finds the first module (in server order) named for the week
// and extracts it. No match is a valid result, not an error.
func (w *WeekResolver) ResolveWeek(ctx context.Context, courseID, token string) (*WeekResult, error) {
	modules, err := w.source.ListModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules of course %s: %w", courseID, err)
	}

	result := &WeekResult{CourseID: courseID, Token: token}

	module := FindWeekModule(modules, token)
	if module == nil {
		result.Available = modules
		return result, nil
	}

	extract, err := w.aggregator.ExtractModule(ctx, courseID, strconv.FormatInt(module.ID, 10))
	if err != nil {
		return nil, err
	}
	extract.Title = fmt.Sprintf("Week %s Content - Complete Extract", token)
	extract.ModuleName = module.Name

	result.Found = true
	result.Module = module
	result.Result = extract
	return result, nil
}

// FindWeekModule returns the first module whose name matches the token, or nil.
func FindWeekModule(modules []canvas.Module, token string) *canvas.Module {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	pattern := regexp.MustCompile(`(?i)week\s*` + regexp.QuoteMeta(token) + `\b`)
	lowerToken := strings.ToLower(token)

	for i := range modules {
		name := strings.ToLower(modules[i].Name)
		if strings.Contains(name, "week "+lowerToken) ||
			strings.Contains(name, "week"+lowerToken) ||
			pattern.MatchString(modules[i].Name) {
			return &modules[i]
		}
	}
	return nil
}
