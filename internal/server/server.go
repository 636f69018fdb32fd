package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"crewboard/internal/activity"
	"crewboard/internal/engine"
	"crewboard/internal/repo"
	"crewboard/internal/stage"
)

// Config for the HTTP API handler.
type Config struct {
	Engine      engine.Engine
	BasePath    string
	ActivityLog *activity.Log
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"claim_conflict"`
	Message string         `json:"message" example:"item already claimed"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Crewboard API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are the caller's fault.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAgentMiddleware())
	hcfg := huma.DefaultConfig("Crewboard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProjects(group, cfg.Engine)
	registerItems(group, cfg.Engine)
	registerDependencies(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerActivity(group, cfg.ActivityLog)
	registerFeed(group, cfg.Engine, cfg.ActivityLog)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var te stage.TransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_transition", err.Error(), map[string]any{"from": te.From, "to": te.To})
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrClaimHeld):
		return newAPIError(http.StatusConflict, "claim_conflict", err.Error(), nil)
	case errors.Is(err, engine.ErrNotOwner):
		return newAPIError(http.StatusConflict, "not_owner", err.Error(), nil)
	case errors.Is(err, engine.ErrNotClaimed):
		return newAPIError(http.StatusConflict, "not_claimed", err.Error(), nil)
	case errors.Is(err, engine.ErrNotClaimable):
		return newAPIError(http.StatusConflict, "not_claimable", err.Error(), nil)
	case errors.Is(err, engine.ErrArchived):
		return newAPIError(http.StatusConflict, "archived", err.Error(), nil)
	case errors.Is(err, engine.ErrStale):
		return newAPIError(http.StatusConflict, "stale", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalid):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

// requireItemInProject hides items that exist but belong to another project;
// the path project must match before any mutation runs.
func requireItemInProject(ctx context.Context, e engine.Engine, itemID, projectID string) huma.StatusError {
	it, err := e.Repo.GetItem(ctx, itemID)
	if err != nil {
		return handleError(err)
	}
	if it.ProjectID != projectID {
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	}
	return nil
}

func requireMissionInProject(ctx context.Context, e engine.Engine, missionID, projectID string) huma.StatusError {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return handleError(err)
	}
	if m.ProjectID != projectID {
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	}
	return nil
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Crewboard API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		if input.Body.ID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", nil)
		}
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.InitProject(ctx, input.Body.ID, input.Body.Description, agentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		projects, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: mapProjects(projects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})
}

func registerItems(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-item",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/items",
		Summary:       "Create item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateItemRequest `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		it, err := e.CreateItem(ctx, engine.ItemCreateOptions{
			ID:          input.Body.ID,
			ProjectID:   input.ProjectID,
			MissionID:   input.Body.MissionID,
			Type:        input.Body.Type,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    input.Body.Priority,
			DependsOn:   input.Body.DependsOn,
			Artifacts:   input.Body.Artifacts,
			AgentID:     agentID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(it)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/items",
		Summary:     "List items",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Stage     string `query:"stage"`
		Mission   string `query:"mission"`
		Agent     string `query:"agent"`
		Archived  bool   `query:"archived"`
		Limit     int    `query:"limit"`
		Cursor    string `query:"cursor"`
	}) (*struct {
		Body struct {
			Items      []ItemResponse `json:"items"`
			NextCursor string         `json:"next_cursor,omitempty"`
		} `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		filter := repo.ItemFilter{
			StageID:         input.Stage,
			MissionID:       input.Mission,
			AssignedAgent:   input.Agent,
			IncludeArchived: input.Archived,
			Limit:           input.Limit,
		}
		if input.Cursor != "" {
			updatedAt, id, ok := strings.Cut(input.Cursor, "|")
			if !ok {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", nil)
			}
			filter.CursorUpdatedAt = updatedAt
			filter.CursorID = id
		}
		items, err := e.Repo.ListItems(ctx, input.ProjectID, filter)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items      []ItemResponse `json:"items"`
				NextCursor string         `json:"next_cursor,omitempty"`
			} `json:"body"`
		}{}
		out.Body.Items = mapItems(items)
		if input.Limit > 0 && len(items) == input.Limit {
			last := items[len(items)-1]
			out.Body.NextCursor = last.UpdatedAt + "|" + last.ID
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/items/{id}",
		Summary:     "Get item",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		it, err := e.Repo.GetItem(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if it.ProjectID != input.ProjectID {
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(it)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "claim-item",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/items/{id}/claim",
		Summary:     "Claim item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body ClaimResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireItemInProject(ctx, e, input.ID, input.ProjectID); err != nil {
			return nil, err
		}
		c, err := e.ClaimItem(ctx, input.ID, agentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ClaimResponse `json:"body"`
		}{Body: claimResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "release-item",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/items/{id}/release",
		Summary:     "Release item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireItemInProject(ctx, e, input.ID, input.ProjectID); err != nil {
			return nil, err
		}
		if err := e.ReleaseItem(ctx, input.ID, agentID); err != nil {
			return nil, handleError(err)
		}
		it, err := e.Repo.GetItem(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(it)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-item",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/items/{id}/reject",
		Summary:     "Reject item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
		Body      struct {
			Reason string `json:"reason,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireItemInProject(ctx, e, input.ID, input.ProjectID); err != nil {
			return nil, err
		}
		it, err := e.RejectItem(ctx, input.ID, agentID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(it)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-item",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/items/{id}/move",
		Summary:     "Move item to another stage",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
		Body      struct {
			ToStage string `json:"to_stage" example:"ready"`
		} `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireItemInProject(ctx, e, input.ID, input.ProjectID); err != nil {
			return nil, err
		}
		it, err := e.MoveItem(ctx, input.ID, input.Body.ToStage, agentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(it)}, nil
	})
}

func registerDependencies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "check-dependencies",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/dependencies/check",
		Summary:     "Evaluate the project dependency graph",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body engine.DependencyReport `json:"body"`
	}, error) {
		report, err := e.CheckDependencies(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DependencyReport `json:"body"`
		}{Body: report}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/missions",
		Summary:       "Create mission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      CreateMissionRequest `json:"body"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateMission(ctx, input.ProjectID, input.Body.Name, input.Body.Description, agentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Archived  bool   `query:"archived"`
	}) (*struct {
		Body []MissionResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		missions, err := e.Repo.ListMissions(ctx, input.ProjectID, input.Archived)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MissionResponse `json:"body"`
		}{Body: mapMissions(missions)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-mission",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/missions/{id}/archive",
		Summary:     "Archive mission and its items",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireMissionInProject(ctx, e, input.ID, input.ProjectID); err != nil {
			return nil, err
		}
		m, err := e.ArchiveMission(ctx, input.ID, agentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-mission",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/missions/{id}/complete",
		Summary:     "Mark mission completed",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireMissionInProject(ctx, e, input.ID, input.ProjectID); err != nil {
			return nil, err
		}
		m, err := e.CompleteMission(ctx, input.ID, agentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/events",
		Summary:     "List audit events",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Limit     int    `query:"limit"`
		Before    int64  `query:"before"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 100
		}
		evts, err := e.Repo.ListEvents(ctx, input.ProjectID, limit, input.Before)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(evts)}, nil
	})
}

func registerActivity(api huma.API, alog *activity.Log) {
	huma.Register(api, huma.Operation{
		OperationID:   "append-activity",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/activity",
		Summary:       "Append an activity log entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string                `path:"project_id"`
		Body      AppendActivityRequest `json:"body"`
	}) (*struct {
		Body ActivityEntryResponse `json:"body"`
	}, error) {
		agentID, authErr := agentIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Message == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "message is required", nil)
		}
		entry, err := alog.Append(domainActivityEntry(agentID, input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityEntryResponse `json:"body"`
		}{Body: ActivityEntryResponse{
			TS:      entry.TS,
			Agent:   entry.Agent,
			Message: entry.Message,
			ItemID:  entry.ItemID,
		}}, nil
	})
}
