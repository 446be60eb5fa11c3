package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Kuma3D/PTTracker/internal/config"
	"github.com/Kuma3D/PTTracker/internal/session"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
// Keys match the names carried by the definitions; cfg.DisabledTools entries
// are checked against these keys.
var toolRegistry = map[string]toolEntry{
	"tracker_ingest": {
		def:     ingestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIngest },
	},
	"tracker_edit": {
		def:     editToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEdit },
	},
	"tracker_regenerate": {
		def:     regenerateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRegenerate },
	},
	"tracker_header": {
		def:     headerToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHeader },
	},
	"tracker_prompt": {
		def:     promptToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePrompt },
	},
	"tracker_state_get": {
		def:     stateGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStateGet },
	},
	"tracker_state_set": {
		def:     stateSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStateSet },
	},
	"tracker_settings_get": {
		def:     settingsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsGet },
	},
	"tracker_settings_set": {
		def:     settingsSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsSet },
	},
	"tracker_filter": {
		def:     filterToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilter },
	},
	"tracker_reset": {
		def:     resetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
	"session_start": {
		def:     startToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStart },
	},
	"session_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"session_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"session_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"session_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"session_replay": {
		def:     replayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReplay },
	},
	"session_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"session_purge": {
		def:     purgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurge },
	},
	"session_message_remove": {
		def:     messageRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMessageRemove },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with tracker tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(mgr *session.Manager, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pttracker",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(mgr, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(mgr *session.Manager, cfg *config.Config, version string) error {
	s := NewServer(mgr, cfg, version)
	return server.ServeStdio(s)
}
