package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Kuma3D/PTTracker/internal/config"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/ops"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tag"
)

// Handlers holds dependencies for MCP tool handlers. The manager carries the
// database handle and the per-session routers, so tracked state survives
// across tool calls within one server process.
type Handlers struct {
	mgr *session.Manager
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(mgr *session.Manager, cfg *config.Config) *Handlers {
	return &Handlers{mgr: mgr, cfg: cfg}
}

// Request types for each tool

// SessionRequest identifies a session for tools that take nothing else:
// tracker_regenerate, tracker_header, tracker_prompt, tracker_state_get,
// tracker_settings_get, tracker_reset, and session_delete.
type SessionRequest struct {
	Session string `json:"session"`
}

// IngestRequest represents the arguments for tracker_ingest.
type IngestRequest struct {
	Session string `json:"session"`
	Role    string `json:"role"`
	Text    string `json:"text"`
}

// EditRequest represents the arguments for tracker_edit.
type EditRequest struct {
	Session     string               `json:"session"`
	Index       *int                 `json:"index,omitempty"`
	Time        *string              `json:"time,omitempty"`
	Location    *string              `json:"location,omitempty"`
	Weather     *string              `json:"weather,omitempty"`
	HeartPoints *int                 `json:"heart_points,omitempty"`
	Characters  []tag.CharacterEntry `json:"characters,omitempty"`
}

// StateSetRequest represents the arguments for tracker_state_set.
type StateSetRequest struct {
	Session     string               `json:"session"`
	Time        *string              `json:"time,omitempty"`
	Location    *string              `json:"location,omitempty"`
	Weather     *string              `json:"weather,omitempty"`
	HeartPoints *int                 `json:"heart_points,omitempty"`
	Characters  []tag.CharacterEntry `json:"characters,omitempty"`
}

// SettingsSetRequest represents the arguments for tracker_settings_set.
type SettingsSetRequest struct {
	Session            string `json:"session"`
	Enabled            *bool  `json:"enabled,omitempty"`
	ScanDepth          *int   `json:"scan_depth,omitempty"`
	DefaultHeartPoints *int   `json:"default_heart_points,omitempty"`
	PromptDepth        *int   `json:"prompt_depth,omitempty"`
	TrackCharacters    *bool  `json:"track_characters,omitempty"`
	ShowTime           *bool  `json:"show_time,omitempty"`
	ShowLocation       *bool  `json:"show_location,omitempty"`
	ShowWeather        *bool  `json:"show_weather,omitempty"`
	ShowHeart          *bool  `json:"show_heart,omitempty"`
	ShowCharacters     *bool  `json:"show_characters,omitempty"`
}

// FilterRequest represents the arguments for tracker_filter.
type FilterRequest struct {
	Text string `json:"text"`
}

// StartRequest represents the arguments for session_start.
type StartRequest struct {
	Name          string  `json:"name"`
	CharacterName *string `json:"character_name,omitempty"`
}

// ListRequest represents the arguments for session_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for session_fetch.
type FetchRequest struct {
	Session     string `json:"session"`
	IncludeText *bool  `json:"include_text,omitempty"`
}

// ExportRequest represents the arguments for session_export.
type ExportRequest struct {
	Session string `json:"session"`
	Path    string `json:"path,omitempty"`
}

// ReplayRequest represents the arguments for session_replay.
type ReplayRequest struct {
	Session string `json:"session"`
	Path    string `json:"path"`
}

// SearchRequest represents the arguments for session_search.
type SearchRequest struct {
	Query   string  `json:"query"`
	Session *string `json:"session,omitempty"`
	Role    *string `json:"role,omitempty"`
	Limit   int     `json:"limit,omitempty"`
	Offset  int     `json:"offset,omitempty"`
}

// PurgeRequest represents the arguments for session_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// MessageRemoveRequest represents the arguments for session_message_remove.
type MessageRemoveRequest struct {
	Session string `json:"session"`
	Index   int    `json:"index"`
}

// Handler implementations

// HandleIngest handles the tracker_ingest tool call.
func (h *Handlers) HandleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IngestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Ingest(h.mgr, ops.IngestInput{
		Session: input.Session,
		Role:    input.Role,
		Text:    input.Text,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEdit handles the tracker_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Edit(h.mgr, ops.EditInput{
		Session: input.Session,
		Index:   input.Index,
		Edits: session.FieldEdits{
			Time:        input.Time,
			Location:    input.Location,
			Weather:     input.Weather,
			HeartPoints: input.HeartPoints,
			Characters:  input.Characters,
		},
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRegenerate handles the tracker_regenerate tool call.
func (h *Handlers) HandleRegenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Regenerate(ctx, h.mgr, ops.RegenerateInput{Session: input.Session})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHeader handles the tracker_header tool call.
func (h *Handlers) HandleHeader(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(h.mgr, ops.LatestInput{Session: input.Session})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"header": result.Header})
}

// HandlePrompt handles the tracker_prompt tool call.
func (h *Handlers) HandlePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(h.mgr, ops.LatestInput{Session: input.Session, IncludePrompt: true})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"prompt": result.Prompt})
}

// HandleStateGet handles the tracker_state_get tool call.
func (h *Handlers) HandleStateGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(h.mgr, ops.LatestInput{Session: input.Session})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStateSet handles the tracker_state_set tool call.
func (h *Handlers) HandleStateSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StateSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetState(h.mgr, ops.SetStateInput{
		Session: input.Session,
		Edits: session.FieldEdits{
			Time:        input.Time,
			Location:    input.Location,
			Weather:     input.Weather,
			HeartPoints: input.HeartPoints,
			Characters:  input.Characters,
		},
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSettingsGet handles the tracker_settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Settings(h.mgr, ops.SettingsInput{Session: input.Session})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSettingsSet handles the tracker_settings_set tool call.
func (h *Handlers) HandleSettingsSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingsSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(h.mgr, ops.UpdateInput{
		Session: input.Session,
		Patch: ops.SettingsPatch{
			Enabled:            input.Enabled,
			ScanDepth:          input.ScanDepth,
			DefaultHeartPoints: input.DefaultHeartPoints,
			PromptDepth:        input.PromptDepth,
			TrackCharacters:    input.TrackCharacters,
			ShowTime:           input.ShowTime,
			ShowLocation:       input.ShowLocation,
			ShowWeather:        input.ShowWeather,
			ShowHeart:          input.ShowHeart,
			ShowCharacters:     input.ShowCharacters,
		},
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFilter handles the tracker_filter tool call.
func (h *Handlers) HandleFilter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilterRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Filter(ops.FilterInput{Text: input.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReset handles the tracker_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Reset(h.mgr, ops.ResetInput{Session: input.Session})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStart handles the session_start tool call.
func (h *Handlers) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StartRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Start(h.mgr.DB(), ops.StartInput{
		Name:          input.Name,
		CharacterName: input.CharacterName,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the session_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.mgr.DB(), ops.ListInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the session_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(h.mgr, ops.DeleteInput{Session: input.Session})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the session_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.mgr.DB(), ops.FetchInput{
		Session:     input.Session,
		IncludeText: input.IncludeText,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the session_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.mgr.DB(), h.cfg, ops.ExportInput{
		Session: input.Session,
		Path:    input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReplay handles the session_replay tool call.
func (h *Handlers) HandleReplay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReplayRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Replay(ctx, h.mgr, h.cfg, ops.ReplayInput{
		Session: input.Session,
		Path:    input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the session_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(h.mgr.DB(), ops.SearchInput{
		Query:   input.Query,
		Session: input.Session,
		Role:    input.Role,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the session_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(h.mgr.DB(), ops.PurgeInput{OlderThanDays: input.OlderThanDays})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMessageRemove handles the session_message_remove tool call.
func (h *Handlers) HandleMessageRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MessageRemoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RemoveMessage(h.mgr, ops.RemoveMessageInput{
		Session: input.Session,
		Index:   input.Index,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error, with IsError: true
// so clients recognize the failure. Typed errors are unwrapped for their
// code and status; INTERNAL errors keep their details out of the payload.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var trackerErr *errors.TrackerError
	if stderrors.As(err, &trackerErr) {
		// An error wrapped on the way up keeps its outer context in the
		// message.
		message := trackerErr.Message
		if wrapped := err.Error(); wrapped != trackerErr.Error() {
			message = wrapped
		}
		errorObj := map[string]any{
			"code":    trackerErr.Code,
			"message": message,
			"status":  trackerErr.Status,
		}
		if trackerErr.Code != errors.ErrInternal && trackerErr.Details != nil {
			errorObj["details"] = trackerErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
