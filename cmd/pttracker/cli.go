package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Kuma3D/PTTracker/internal/config"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/ops"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/web"
)

// maxStdinBytes bounds a single message piped through stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(mgr *session.Manager, cfg *config.Config, log *zap.Logger) *cli.App {
	app := &cli.App{
		Name:    "pttracker",
		Usage:   "Story state tracker for AI chat",
		Version: Version,
		Commands: []*cli.Command{
			parseCmd(),
			ingestCmd(mgr),
			headerCmd(mgr),
			promptCmd(mgr),
			stateCmd(mgr),
			settingsCmd(mgr),
			sessionsCmd(mgr),
			exportCmd(mgr, cfg),
			replayCmd(mgr, cfg),
			webCmd(mgr, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// sessionFlag is the session reference flag shared by most commands.
func sessionFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Session ID or name"}
}

// sessionRef reads the session reference from the positional argument or the
// --session flag. Empty is allowed here; operations reject it.
func sessionRef(c *cli.Context) string {
	if c.NArg() > 0 {
		return c.Args().First()
	}
	return c.String("session")
}

// parseCmd creates the parse command.
func parseCmd() *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Extract status tags from text (reads from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("text must be piped via stdin"))
			}

			text, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			output, err := ops.Filter(ops.FilterInput{Text: text})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// ingestCmd creates the ingest command.
func ingestCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Append a chat message to a session (reads text from stdin)",
		ArgsUsage: "[session]",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Value: "ai", Usage: "Message role: user|ai"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("text must be piped via stdin"))
			}

			text, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			output, err := ops.Ingest(mgr, ops.IngestInput{
				Session: sessionRef(c),
				Role:    c.String("role"),
				Text:    text,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// headerCmd creates the header command.
func headerCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "header",
		Usage:     "Print the current status header for a session",
		ArgsUsage: "[session]",
		Flags:     []cli.Flag{sessionFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(mgr, ops.LatestInput{Session: sessionRef(c)})
			if err != nil {
				return outputError(err)
			}

			// Raw text, not JSON: the header is meant to be pasted into a chat.
			fmt.Println(output.Header)
			return nil
		},
	}
}

// promptCmd creates the prompt command.
func promptCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "prompt",
		Usage:     "Print the prompt instruction block for a session",
		ArgsUsage: "[session]",
		Flags:     []cli.Flag{sessionFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(mgr, ops.LatestInput{Session: sessionRef(c), IncludePrompt: true})
			if err != nil {
				return outputError(err)
			}

			fmt.Println(output.Prompt)
			return nil
		},
	}
}

// stateCmd creates the state command.
func stateCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "state",
		Usage:     "Show the tracked state for a session, or set fields directly",
		ArgsUsage: "[session]",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "time", Usage: "Set the story time"},
			&cli.StringFlag{Name: "location", Usage: "Set the location"},
			&cli.StringFlag{Name: "weather", Usage: "Set the weather"},
			&cli.IntFlag{Name: "heart", Usage: "Set heart points"},
			&cli.StringSliceFlag{Name: "char", Usage: "Set a character (\"Name | outfit: ... | state: ... | position: ...\"); repeatable"},
			&cli.BoolFlag{Name: "clear-chars", Usage: "Remove all character entries"},
		},
		Action: func(c *cli.Context) error {
			edits := session.FieldEdits{}
			if c.IsSet("time") {
				v := c.String("time")
				edits.Time = &v
			}
			if c.IsSet("location") {
				v := c.String("location")
				edits.Location = &v
			}
			if c.IsSet("weather") {
				v := c.String("weather")
				edits.Weather = &v
			}
			if c.IsSet("heart") {
				v := c.Int("heart")
				edits.HeartPoints = &v
			}
			if c.Bool("clear-chars") {
				edits.Characters = []tag.CharacterEntry{}
			}
			if c.IsSet("char") {
				chars, err := parseCharacterFlags(c.StringSlice("char"))
				if err != nil {
					return outputError(err)
				}
				edits.Characters = chars
			}

			// No edit flags → read-only view
			if edits.Empty() {
				output, err := ops.Latest(mgr, ops.LatestInput{Session: sessionRef(c)})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.SetState(mgr, ops.SetStateInput{
				Session: sessionRef(c),
				Edits:   edits,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// settingsCmd creates the settings command group.
func settingsCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read or change a session's tracker settings",
		Subcommands: []*cli.Command{
			settingsGetCmd(mgr),
			settingsSetCmd(mgr),
		},
	}
}

// settingsGetCmd creates the settings get subcommand.
func settingsGetCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a session's tracker settings",
		ArgsUsage: "[session]",
		Flags:     []cli.Flag{sessionFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Settings(mgr, ops.SettingsInput{Session: sessionRef(c)})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// settingsSetCmd creates the settings set subcommand.
func settingsSetCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Change tracker settings (only the flags given are changed)",
		ArgsUsage: "[session]",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.BoolFlag{Name: "enabled", Usage: "Turn the tracker on or off"},
			&cli.IntFlag{Name: "scan-depth", Usage: "Messages scanned backward for fallback values"},
			&cli.IntFlag{Name: "default-heart-points", Usage: "Heart points before any are tracked"},
			&cli.IntFlag{Name: "prompt-depth", Usage: "Injection depth of the prompt block"},
			&cli.BoolFlag{Name: "track-characters", Usage: "Track character entries"},
			&cli.BoolFlag{Name: "show-time", Usage: "Show the time line"},
			&cli.BoolFlag{Name: "show-location", Usage: "Show the location line"},
			&cli.BoolFlag{Name: "show-weather", Usage: "Show the weather line"},
			&cli.BoolFlag{Name: "show-heart", Usage: "Show the heart meter line"},
			&cli.BoolFlag{Name: "show-characters", Usage: "Show the character block"},
		},
		Action: func(c *cli.Context) error {
			patch := ops.SettingsPatch{}
			if c.IsSet("enabled") {
				v := c.Bool("enabled")
				patch.Enabled = &v
			}
			if c.IsSet("scan-depth") {
				v := c.Int("scan-depth")
				patch.ScanDepth = &v
			}
			if c.IsSet("default-heart-points") {
				v := c.Int("default-heart-points")
				patch.DefaultHeartPoints = &v
			}
			if c.IsSet("prompt-depth") {
				v := c.Int("prompt-depth")
				patch.PromptDepth = &v
			}
			if c.IsSet("track-characters") {
				v := c.Bool("track-characters")
				patch.TrackCharacters = &v
			}
			if c.IsSet("show-time") {
				v := c.Bool("show-time")
				patch.ShowTime = &v
			}
			if c.IsSet("show-location") {
				v := c.Bool("show-location")
				patch.ShowLocation = &v
			}
			if c.IsSet("show-weather") {
				v := c.Bool("show-weather")
				patch.ShowWeather = &v
			}
			if c.IsSet("show-heart") {
				v := c.Bool("show-heart")
				patch.ShowHeart = &v
			}
			if c.IsSet("show-characters") {
				v := c.Bool("show-characters")
				patch.ShowCharacters = &v
			}

			output, err := ops.Update(mgr, ops.UpdateInput{
				Session: sessionRef(c),
				Patch:   patch,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsCmd creates the sessions command group.
func sessionsCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Manage tracked chat sessions",
		Subcommands: []*cli.Command{
			sessionsStartCmd(mgr),
			sessionsListCmd(mgr),
			sessionsShowCmd(mgr),
			sessionsDeleteCmd(mgr),
			sessionsSearchCmd(mgr),
			sessionsPurgeCmd(mgr),
		},
	}
}

// sessionsStartCmd creates the sessions start subcommand.
func sessionsStartCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Create a tracked session",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Session name"},
			&cli.StringFlag{Name: "character", Aliases: []string{"c"}, Usage: "Character name (optional)"},
		},
		Action: func(c *cli.Context) error {
			name := c.String("name")
			if c.NArg() > 0 {
				name = c.Args().First()
			}

			input := ops.StartInput{Name: name}
			if character := c.String("character"); character != "" {
				input.CharacterName = &character
			}

			output, err := ops.Start(mgr.DB(), input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsListCmd creates the sessions list subcommand.
func sessionsListCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List active sessions",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(mgr.DB(), ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsShowCmd creates the sessions show subcommand.
func sessionsShowCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a session with its full message history",
		ArgsUsage: "[session]",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.BoolFlag{Name: "no-text", Usage: "Exclude message text from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{Session: sessionRef(c)}

			if c.Bool("no-text") {
				includeText := false
				input.IncludeText = &includeText
			}

			output, err := ops.Fetch(mgr.DB(), input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsDeleteCmd creates the sessions delete subcommand.
func sessionsDeleteCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a session",
		ArgsUsage: "[session]",
		Flags:     []cli.Flag{sessionFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(mgr, ops.DeleteInput{Session: sessionRef(c)})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsSearchCmd creates the sessions search subcommand.
func sessionsSearchCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search message text across sessions",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Text to search for"},
			sessionFlag(),
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "Filter by role: user|ai"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			query := c.String("query")
			if c.NArg() > 0 {
				query = c.Args().First()
			}

			input := ops.SearchInput{
				Query:  query,
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			if s := c.String("session"); s != "" {
				input.Session = &s
			}
			if role := c.String("role"); role != "" {
				input.Role = &role
			}

			output, err := ops.Search(mgr.DB(), input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsPurgeCmd creates the sessions purge subcommand.
func sessionsPurgeCmd(mgr *session.Manager) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(mgr.DB(), input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(mgr *session.Manager, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a session transcript to a JSONL file",
		ArgsUsage: "[session]",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.pttracker/exports/<session>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, mgr.DB(), cfg, ops.ExportInput{
				Session: sessionRef(c),
				Path:    c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// replayCmd creates the replay command.
func replayCmd(mgr *session.Manager, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay a JSONL transcript into a session, rebuilding tracked state",
		ArgsUsage: "[session]",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Transcript file path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Replay(c.Context, mgr, cfg, ops.ReplayInput{
				Session: sessionRef(c),
				Path:    c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(mgr *session.Manager, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the session inspector over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8489, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(mgr, Version, c.String("bind"), c.Int("port"), log)
			if err := web.Run(srv, log); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tErr *errors.TrackerError
	if stderrors.As(err, &tErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, up to limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseCharacterFlags converts --char values into character entries. Each
// value uses the tag segment syntax: a name, then optional outfit, state,
// and position segments separated by pipes.
func parseCharacterFlags(values []string) ([]tag.CharacterEntry, error) {
	chars := make([]tag.CharacterEntry, 0, len(values))
	for _, v := range values {
		parsed := tag.Extract("[char: " + v + "]")
		if len(parsed.Characters) != 1 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid character %q", v))
		}
		chars = append(chars, parsed.Characters[0])
	}
	return chars, nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
