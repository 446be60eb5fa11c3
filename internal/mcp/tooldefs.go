package mcp

import "github.com/mark3labs/mcp-go/mcp"

// characterItems is the schema for one entry in a characters array argument.
// Mirrors the [char: ...] tag fields; name is the only required key.
var characterItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":     map[string]any{"type": "string", "description": "Character name"},
		"outfit":   map[string]any{"type": "string", "description": "What they are wearing"},
		"state":    map[string]any{"type": "string", "description": "Mood or condition"},
		"position": map[string]any{"type": "string", "description": "Where they are in the scene"},
	},
	"required": []string{"name"},
}

var ingestToolDef = mcp.NewTool("tracker_ingest",
	mcp.WithDescription("Append a chat message to a session and run it through the story tracker. AI messages get their [key: value] tags extracted, a status header rendered, and the tracked state advanced; user messages are stored as-is. Returns the message id, index, header, snapshot, and tag-stripped text."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithString("role", mcp.Required(), mcp.Enum("user", "ai"), mcp.Description("Author of the message")),
	mcp.WithString("text", mcp.Required(), mcp.Description("Raw message text, tags included")),
)

var editToolDef = mcp.NewTool("tracker_edit",
	mcp.WithDescription("Correct the tracked state recorded for one AI message. Provide only the fields to change; omitted fields keep their stored values. Editing the latest AI message also updates the live state (promoted=true in the result)."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithNumber("index", mcp.Description("Message index to edit; defaults to the latest AI message")),
	mcp.WithString("time", mcp.Description("Replacement in-story time, e.g. '9:30 PM'")),
	mcp.WithString("location", mcp.Description("Replacement location")),
	mcp.WithString("weather", mcp.Description("Replacement weather")),
	mcp.WithNumber("heart_points", mcp.Description("Replacement heart points; negative values clamp to 0")),
	mcp.WithArray("characters", mcp.Description("Replacement scene participants, in display order"), mcp.Items(characterItems)),
)

var regenerateToolDef = mcp.NewTool("tracker_regenerate",
	mcp.WithDescription("Ask the configured model to re-derive the latest AI message's tags and apply the result. Fails with EMPTY_GENERATION, leaving state untouched, when the response carries no usable tags."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var headerToolDef = mcp.NewTool("tracker_header",
	mcp.WithDescription("Return the rendered status header for a session's current state: time, location, weather, and heart meter lines, honoring the per-line visibility settings."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var promptToolDef = mcp.NewTool("tracker_prompt",
	mcp.WithDescription("Return the instruction block the tracker injects into the model prompt: the tag vocabulary plus the current state as tag lines."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var stateGetToolDef = mcp.NewTool("tracker_state_get",
	mcp.WithDescription("Return the live tracked state for a session: the current snapshot (time, location, weather, heart points, characters) and its rendered header."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var stateSetToolDef = mcp.NewTool("tracker_state_set",
	mcp.WithDescription("Overwrite fields of the live tracked state directly, without going through a message. The latest AI message's header and stored snapshot are updated to match. Provide at least one field."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithString("time", mcp.Description("New in-story time")),
	mcp.WithString("location", mcp.Description("New location")),
	mcp.WithString("weather", mcp.Description("New weather")),
	mcp.WithNumber("heart_points", mcp.Description("New heart points; negative values clamp to 0")),
	mcp.WithArray("characters", mcp.Description("Replacement scene participants"), mcp.Items(characterItems)),
)

var settingsGetToolDef = mcp.NewTool("tracker_settings_get",
	mcp.WithDescription("Return a session's tracker settings, including the persisted current snapshot. Works whether or not the tracker is enabled."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var settingsSetToolDef = mcp.NewTool("tracker_settings_set",
	mcp.WithDescription("Change a session's tracker settings. Provide only the fields to change. Updates take effect immediately: headers re-render and the prompt block follows the new configuration."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithBoolean("enabled", mcp.Description("Master switch; when false every tracker operation is refused")),
	mcp.WithNumber("scan_depth", mcp.Description("How many earlier messages the fallback resolver may inspect (minimum 1)")),
	mcp.WithNumber("default_heart_points", mcp.Description("Heart meter seed for sessions that have never seen a heart tag")),
	mcp.WithNumber("prompt_depth", mcp.Description("Injection depth of the instruction block, in messages from the end")),
	mcp.WithBoolean("track_characters", mcp.Description("Whether [char: ...] tags are tracked at all")),
	mcp.WithBoolean("show_time", mcp.Description("Show the time line in headers")),
	mcp.WithBoolean("show_location", mcp.Description("Show the location line in headers")),
	mcp.WithBoolean("show_weather", mcp.Description("Show the weather line in headers")),
	mcp.WithBoolean("show_heart", mcp.Description("Show the heart meter line in headers")),
	mcp.WithBoolean("show_characters", mcp.Description("Show character lines in headers")),
)

var filterToolDef = mcp.NewTool("tracker_filter",
	mcp.WithDescription("Strip tracker tags out of a piece of text and report what they carried. Stateless: no session is touched and nothing is stored."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to filter")),
)

var resetToolDef = mcp.NewTool("tracker_reset",
	mcp.WithDescription("Clear all tracked state for a session: the live snapshot returns to defaults, message headers come down, and stored per-message snapshots are dropped. Message text is untouched."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var startToolDef = mcp.NewTool("session_start",
	mcp.WithDescription("Create a tracked chat session. Names are unique case-insensitively among active sessions; the returned ID is the stable handle."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Human-readable session name")),
	mcp.WithString("character_name", mcp.Description("Main character the story follows")),
)

var listToolDef = mcp.NewTool("session_list",
	mcp.WithDescription("List active sessions, most recently updated first, with message counts and pagination metadata. Never returns message text."),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Number of sessions to skip")),
)

var deleteToolDef = mcp.NewTool("session_delete",
	mcp.WithDescription("Soft-delete a session. Its name becomes reusable immediately; messages stay recoverable until session_purge removes them."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
)

var fetchToolDef = mcp.NewTool("session_fetch",
	mcp.WithDescription("Return one session in full: settings plus every message with its stored header and snapshot. Set include_text=false to omit message text and keep the response small."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithBoolean("include_text", mcp.Description("Include message text (default true)")),
)

var exportToolDef = mcp.NewTool("session_export",
	mcp.WithDescription("Write a session's transcript to a JSONL file: a header line, then one record per message with text, header, and snapshot. Paths must end in .jsonl and sit directly in an allowed directory."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithString("path", mcp.Description("Destination file; defaults to the exports directory with a timestamped name")),
)

var replayToolDef = mcp.NewTool("session_replay",
	mcp.WithDescription("Re-ingest a JSONL transcript into a session, rebuilding tracked state from the raw message text. Lines that cannot be parsed are skipped and reported; valid lines still apply."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Target session ID or name")),
	mcp.WithString("path", mcp.Required(), mcp.Description("Transcript file to read")),
)

var searchToolDef = mcp.NewTool("session_search",
	mcp.WithDescription("Search message text across active sessions, case-insensitively, newest first. Returns snippets around each match, never full messages."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	mcp.WithString("session", mcp.Description("Restrict to one session (ID or name)")),
	mcp.WithString("role", mcp.Enum("user", "ai"), mcp.Description("Restrict to one author role")),
	mcp.WithNumber("limit", mcp.Description("Maximum matches to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Number of matches to skip")),
)

var purgeToolDef = mcp.NewTool("session_purge",
	mcp.WithDescription("Permanently delete soft-deleted sessions and their messages. Irreversible."),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge sessions deleted more than this many days ago")),
)

var messageRemoveToolDef = mcp.NewTool("session_message_remove",
	mcp.WithDescription("Delete one message from a session and renumber the ones after it. The live tracked state is kept; only the message's own snapshot is dropped."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session ID or name")),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Index of the message to remove")),
)
