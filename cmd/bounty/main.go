package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bountyline/internal/config"
	"bountyline/internal/db"
	"bountyline/internal/engine"
	"bountyline/internal/migrate"
	"bountyline/internal/server"
	"bountyline/internal/store"
	"bountyline/internal/token"
)

var rootCmd = &cobra.Command{
	Use:   "bounty",
	Short: "Bountyline CLI",
	Long: `Bountyline is a task bounty board: sponsors fund tasks, contributors
submit work against them, and sponsors review the submissions.
- Workspace: the .bountyline directory holding the database; settings live
  in bountyline.yml next to it.
- Sponsors: identified by wallet address, own tasks and review submissions.
- Contributors: identified by email, carry a skill profile and submit work.
- Tasks: open until their sponsor completes or cancels them.
- Submissions: pending until reviewed as accepted or rejected.`,
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
	viper.SetEnvPrefix("BOUNTYLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(sponsorCmd())
	rootCmd.AddCommand(contributorCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(submissionCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default bountyline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func sponsorCmd() *cobra.Command {
	sp := &cobra.Command{Use: "sponsor", Short: "Inspect sponsors"}
	sp.AddCommand(sponsorListCmd())
	sp.AddCommand(sponsorShowCmd())
	return sp
}

func sponsorListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sponsors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Sponsors.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Wallet", "Name", "Website", "Tasks"})
				for _, sp := range items {
					tw.AppendRow(table.Row{sp.WalletAddress, sp.Name, sp.Website, len(sp.TaskIDs)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func sponsorShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <wallet>",
		Short: "Show a sponsor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sp, err := e.Sponsors.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(sp)
			})
		},
	}
	return cmd
}

func contributorCmd() *cobra.Command {
	c := &cobra.Command{Use: "contributor", Short: "Inspect contributors"}
	c.AddCommand(contributorListCmd())
	c.AddCommand(contributorShowCmd())
	return c
}

func contributorListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contributors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Contributors.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Email", "Name", "Wallet", "Reputation", "Skills"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.Email, c.Name, c.WalletAddress, c.Reputation, len(c.Skills)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func contributorShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <email>",
		Short: "Show a contributor with resolved skill names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.ContributorProfile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Inspect tasks"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskShowCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var sponsorID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Tasks.List(ctx, store.TaskFilters{SponsorID: sponsorID, Status: status})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Sponsor", "Status", "Reward", "Submissions"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.ID, t.Title, t.SponsorID, t.Status, t.Reward, len(t.Submissions)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sponsorID, "sponsor", "", "filter by sponsor wallet")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, completed, cancelled)")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Tasks.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func submissionCmd() *cobra.Command {
	s := &cobra.Command{Use: "submission", Short: "Inspect submissions"}
	s.AddCommand(submissionListCmd())
	s.AddCommand(submissionShowCmd())
	return s
}

func submissionListCmd() *cobra.Command {
	var taskID, wallet, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Submissions.List(ctx, store.SubmissionFilters{
					TaskID:        taskID,
					WalletAddress: wallet,
					Status:        status,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Task", "Wallet", "Status", "Rating"})
				for _, sub := range items {
					rating := ""
					if sub.Rating != nil {
						rating = fmt.Sprintf("%d", *sub.Rating)
					}
					tw.AppendRow(table.Row{sub.ID, sub.TaskID, sub.WalletAddress, sub.Status, rating})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "filter by task id")
	cmd.Flags().StringVar(&wallet, "wallet", "", "filter by submitter wallet")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, accepted, rejected)")
	return cmd
}

func submissionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <submission-id>",
		Short: "Show a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sub, err := e.Submissions.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(sub)
			})
		},
	}
	return cmd
}

func skillCmd() *cobra.Command {
	s := &cobra.Command{Use: "skill", Short: "Inspect the skill catalog"}
	s.AddCommand(skillListCmd())
	return s
}

func skillListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Skills.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name"})
				for _, sk := range items {
					tw.AppendRow(table.Row{sk.ID, sk.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
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
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if secret := os.Getenv("BOUNTYLINE_TOKEN_SECRET"); secret != "" {
				cfg.Auth.TokenSecret = secret
			}
			codec, err := token.NewCodec(cfg.Auth.TokenSecret)
			if err != nil {
				return err
			}
			e := engine.New(conn)
			if addr == "" {
				addr = cfg.Server.Listen
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				App:      cfg,
				Codec:    codec,
				BasePath: basePath,
				Auth: server.AuthConfig{
					Codec:                     codec,
					AllowInternalWalletHeader: cfg.Auth.AllowInternalWalletHeader,
				},
			})
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
			fmt.Printf("Serving Bountyline API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
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
	return fn(ctx, engine.New(conn))
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
