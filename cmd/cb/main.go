package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crewboard/internal/activity"
	"crewboard/internal/config"
	"crewboard/internal/db"
	"crewboard/internal/domain"
	"crewboard/internal/engine"
	"crewboard/internal/migrate"
	"crewboard/internal/repo"
	"crewboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "cb",
	Short: "Crewboard CLI",
	Long: `Crewboard coordinates a crew of agents over a shared work board.
Core concepts:
- Workspace: the .crewboard directory holding the board database and the activity log.
- Project: the board itself; it owns items, missions, and the audit trail.
- Items: units of work that flow briefings -> ready -> testing/implementing/probing -> review -> done, with blocked as the recovery stage.
- Claims: exclusive ownership of an item by one agent; first claim wins, release or rejection frees it.
- Missions: named batches of items that can be completed or archived as a whole.
- Dependencies: items can depend on each other; 'cb deps check' finds cycles and tells you what is ready.
- Activity log: the crew's shared append-only journal, streamed live over the feed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CREWBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("agent-id", "local-agent", "agent identifier")
	rootCmd.PersistentFlags().String("project", "", "project id (overrides config default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("agent-id", rootCmd.PersistentFlags().Lookup("agent-id"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(depsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(serveCmd())
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var id, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg := config.Default(id)
			e := engine.New(conn, cfg)
			p, err := e.InitProject(cmd.Context(), id, desc, viper.GetString("agent-id"))
			if err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault(id)), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", cfgPath)
			}
			return printJSONOrTable(p)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projects, err := e.Repo.ListProjects(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(projects)
			})
		},
	}
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func itemCmd() *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Manage board items",
		Long:  "Items are the work units. They start in briefings, move through the flow stages, and end in done. A claim marks who is on it; a rejection sends it to blocked and bumps its rejection count.",
	}
	item.AddCommand(itemCreateCmd())
	item.AddCommand(itemListCmd())
	item.AddCommand(itemShowCmd())
	item.AddCommand(itemMoveCmd())
	item.AddCommand(itemClaimCmd())
	item.AddCommand(itemReleaseCmd())
	item.AddCommand(itemRejectCmd())
	item.AddCommand(itemNextCmd())
	return item
}

func itemCreateCmd() *cobra.Command {
	var opts engine.ItemCreateOptions
	var dependsOn, artifacts []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.AgentID = viper.GetString("agent-id")
			opts.DependsOn = dependsOn
			opts.Artifacts = artifacts
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				it, err := e.CreateItem(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "item id (optional, deterministic UUID if omitted)")
	cmd.Flags().StringVar(&opts.ProjectID, "project-id", "", "project id")
	cmd.Flags().StringVar(&opts.MissionID, "mission", "", "mission id")
	cmd.Flags().StringVar(&opts.Type, "type", "technical", "item type (feature, bug, technical, docs, chore)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().IntVar(&opts.Priority, "priority", 0, "priority (lower is higher)")
	cmd.Flags().StringArrayVar(&dependsOn, "depends-on", []string{}, "dependency item id (repeatable)")
	cmd.Flags().StringArrayVar(&artifacts, "artifact", []string{}, "artifact reference (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func itemListCmd() *cobra.Command {
	var f repo.ItemFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListItems(ctx, e.Config.Project.ID, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Stage", "Agent", "Prio", "Rejects", "Mission"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Title, it.StageID, it.AssignedAgent, it.Priority, it.RejectionCount, it.MissionID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.StageID, "stage", "", "stage filter")
	cmd.Flags().StringVar(&f.MissionID, "mission", "", "mission filter")
	cmd.Flags().StringVar(&f.AssignedAgent, "agent", "", "assigned agent filter")
	cmd.Flags().BoolVar(&f.IncludeArchived, "archived", false, "include archived items")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max items")
	return cmd
}

func itemShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				it, err := e.Repo.GetItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	return cmd
}

func itemMoveCmd() *cobra.Command {
	var toStage string
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move an item to another stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				it, err := e.MoveItem(ctx, args[0], toStage, viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	cmd.Flags().StringVar(&toStage, "to", "", "target stage")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func itemClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				claim, err := e.ClaimItem(ctx, args[0], viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(claim)
			})
		},
	}
	return cmd
}

func itemReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release <id>",
		Short: "Release a claimed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.ReleaseItem(ctx, args[0], viper.GetString("agent-id"))
			})
		},
	}
	return cmd
}

func itemRejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject an item back to blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				it, err := e.RejectItem(ctx, args[0], viper.GetString("agent-id"), reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func itemNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pick the next claimable item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, ok, err := e.NextItem(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				if !ok {
					if viper.GetBool("json") {
						return printJSON(map[string]any{"item": nil})
					}
					fmt.Println("no claimable items")
					return nil
				}
				it, err := e.Repo.GetItem(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	return cmd
}

func missionCmd() *cobra.Command {
	mission := &cobra.Command{
		Use:   "mission",
		Short: "Manage missions",
		Long:  "Missions group items into a batch. Completing a mission requires every item to be done; archiving retires the mission and its items in one step and frees their claims.",
	}
	mission.AddCommand(missionCreateCmd())
	mission.AddCommand(missionListCmd())
	mission.AddCommand(missionArchiveCmd())
	mission.AddCommand(missionCompleteCmd())
	return mission
}

func missionCreateCmd() *cobra.Command {
	var name, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMission(ctx, e.Config.Project.ID, name, desc, viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "mission name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func missionListCmd() *cobra.Command {
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				missions, err := e.Repo.ListMissions(ctx, e.Config.Project.ID, includeArchived)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(missions)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Completed", "Archived"})
				for _, m := range missions {
					tw.AppendRow(table.Row{m.ID, m.Name, m.Status, m.CompletedAt, m.ArchivedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "archived", false, "include archived missions")
	return cmd
}

func missionArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a mission and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.ArchiveMission(ctx, args[0], viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	return cmd
}

func missionCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a mission once all items are done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CompleteMission(ctx, args[0], viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	return cmd
}

func depsCmd() *cobra.Command {
	deps := &cobra.Command{
		Use:   "deps",
		Short: "Inspect item dependencies",
	}
	deps.AddCommand(depsCheckCmd())
	return deps
}

func depsCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the dependency graph for cycles and list ready items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.CheckDependencies(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				if report.Valid {
					fmt.Println("Dependency graph OK")
				} else {
					fmt.Println("Dependency cycles found:")
					for _, cycle := range report.Cycles {
						fmt.Printf("  %s\n", strings.Join(cycle, " -> "))
					}
				}
				fmt.Printf("Ready: %s\n", strings.Join(report.ReadyItems, ", "))
				fmt.Printf("Blocked: %s\n", strings.Join(report.BlockedItems, ", "))
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	alog := &cobra.Command{
		Use:   "log",
		Short: "Shared activity log",
		Long:  "The crew's append-only journal. Every agent writes progress notes here; tail -f follows new entries live.",
	}
	alog.AddCommand(logAppendCmd())
	alog.AddCommand(logTailCmd())
	return alog
}

func logAppendCmd() *cobra.Command {
	var itemID string
	cmd := &cobra.Command{
		Use:   "append <message>",
		Short: "Append an activity entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			alog := activity.NewLog(db.ActivityLogPath(workspace))
			entry, err := alog.Append(domain.ActivityEntry{
				Agent:   viper.GetString("agent-id"),
				Message: args[0],
				ItemID:  itemID,
			})
			if err != nil {
				return err
			}
			return printJSONOrTable(entry)
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "related item id")
	return cmd
}

func logTailCmd() *cobra.Command {
	var n int
	var follow bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := db.ActivityLogPath(workspace)
			entries, err := activity.ReadNew(path, 0)
			if err != nil && !errors.Is(err, activity.ErrMalformedLine) {
				return err
			}
			if len(entries) > n {
				entries = entries[len(entries)-n:]
			}
			for _, te := range entries {
				printActivityEntry(te.Entry)
			}
			if !follow {
				return nil
			}
			offset, err := activity.Size(path)
			if err != nil {
				return err
			}
			return followActivity(cmd.Context(), path, offset)
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow new entries")
	return cmd
}

// followActivity watches the log file and prints entries as they land. The
// watcher is on the directory so a log rotated or created later is still
// picked up.
func followActivity(ctx context.Context, path string, offset int64) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	drain := func() error {
		entries, err := activity.ReadNew(path, offset)
		if err != nil && !errors.Is(err, activity.ErrMalformedLine) {
			return err
		}
		for _, te := range entries {
			printActivityEntry(te.Entry)
			offset = te.Offset
		}
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Name != path {
				continue
			}
			if err := drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("activity watch error", "err", err)
		}
	}
}

func printActivityEntry(e domain.ActivityEntry) {
	if viper.GetBool("json") {
		_ = printJSON(e)
		return
	}
	if e.ItemID != "" {
		fmt.Printf("%s  %-12s  [%s] %s\n", e.TS, e.Agent, e.ItemID, e.Message)
		return
	}
	fmt.Printf("%s  %-12s  %s\n", e.TS, e.Agent, e.Message)
}

func eventsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, e.Config.Project.ID, n, 0)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Agent"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityID, evt.AgentID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := resolveConfig(cmd.Context(), workspace, r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			alog := activity.NewLog(db.ActivityLogPath(workspace))
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, ActivityLog: alog})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info("serving crewboard API", "addr", addr, "base_path", basePath, "project", cfg.Project.ID)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := resolveConfig(ctx, workspace, r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

// resolveConfig picks the active project config: --project flag first, then
// crewboard.yml, then the single project in the workspace DB.
func resolveConfig(ctx context.Context, workspace string, r repo.Repo) (*config.Config, error) {
	if flag := strings.TrimSpace(viper.GetString("project")); flag != "" {
		if cfg, err := r.GetProjectConfig(ctx, flag); err == nil {
			return cfg, nil
		}
		return config.Default(flag), nil
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	p, err := r.SingleProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("no project selected; use --project, crewboard.yml, or cb project create: %w", err)
	}
	if cfg, err := r.GetProjectConfig(ctx, p.ID); err == nil {
		return cfg, nil
	}
	return config.Default(p.ID), nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
