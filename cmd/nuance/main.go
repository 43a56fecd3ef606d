// Nuance CLI - daily self-tracking from the terminal.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nuance-app/nuance/internal/access"
	"github.com/nuance-app/nuance/internal/analytics"
	"github.com/nuance-app/nuance/internal/coach"
	"github.com/nuance-app/nuance/internal/config"
	"github.com/nuance-app/nuance/internal/core"
	"github.com/nuance-app/nuance/internal/state"
	"github.com/nuance-app/nuance/internal/storage"
)

var (
	configPath string
	dataDir    string

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nuance",
		Short: "Nuance - deterministic daily self-tracking",
		Long: `Nuance scores each day from what you actually did: sliders,
behavior toggles, penalties, and context. The math is deterministic,
the data stays on your machine.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(dayCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(coachCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(undoCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(tierCmd())
	rootCmd.AddCommand(ownerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session bundles the open database and loaded state for one CLI invocation
type session struct {
	app          *state.App
	db           *storage.DB
	stateStore   *storage.StateStore
	historyStore *storage.HistoryStore
}

func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	db, err := storage.Open(storage.Config{Path: cfg.DBPath()})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	app := state.New()
	stateStore := storage.NewStateStore(db)
	if blob, err := stateStore.Load(); err == nil && blob != nil {
		app.Restore(blob) // corrupt state falls back to defaults
	}

	historyStore := storage.NewHistoryStore(db)
	history, err := historyStore.LoadAll()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	app.SetHistory(history)

	return &session{
		app:          app,
		db:           db,
		stateStore:   stateStore,
		historyStore: historyStore,
	}, nil
}

func (s *session) close() {
	s.db.Close()
}

// persist writes the state blob back to storage.
func (s *session) persist() error {
	data, err := s.app.Marshal()
	if err != nil {
		return err
	}
	return s.stateStore.Save(data)
}

func (s *session) requireFeature(f access.Feature) error {
	if s.app.Allowed(f) {
		return nil
	}
	return fmt.Errorf("%w: %s requires the %s tier (current: %s)",
		core.ErrTierLocked, f, access.Required(f), s.app.Gate().Tier)
}

func printScore(app *state.App) {
	day := app.Day()
	res := app.Score()
	fmt.Printf("Date:     %s (mode %s)\n", day.Date, day.Mode)
	fmt.Printf("Score:    %.1f (base %.1f, penalty x%.3f)\n", res.Score, res.BaseScore, res.PenaltyProduct)
	fmt.Printf("Recovery: %.1f (base %.1f)\n", res.Recovery, res.BaseRecovery)
	fmt.Printf("Status:   %s\n", res.Status)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nuance %s\n", version)
		},
	}
}

// statusCmd shows the current day's score
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the working day's score",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			printScore(s.app)

			current, best := analytics.Streaks(s.app.History(), core.Today())
			fmt.Printf("Streak:   %d (best %d)\n", current, best)
			return nil
		},
	}
}

// dayCmd edits the working day
func dayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Edit the working day",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "date <YYYY-MM-DD>",
		Short: "Switch the working day to another date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.SelectDate(args[0]); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <slider-id> <value>",
		Short: "Set a slider value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", args[1])
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.SetSlider(core.ItemID(args[0]), value); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <toggle-id> <on|off>",
		Short: "Set a behavior toggle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.SetToggle(core.ItemID(args[0]), on); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "penalty <penalty-id> <on|off>",
		Short: "Set a penalty flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.SetPenalty(core.ItemID(args[0]), on); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "context <alcohol> <stress>",
		Short: "Set alcohol and stress levels (none, low, med, high)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alcohol, err := core.ParseLevel(args[0])
			if err != nil {
				return err
			}
			stress, err := core.ParseLevel(args[1])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.app.SetContext(alcohol, stress)
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mode <high|medium|low>",
		Short: "Set the status interpretation mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := core.ParseMode(args[0])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.app.SetMode(mode)
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	return cmd
}

// saveCmd commits the working day to history
func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Commit the working day to history",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			rec := s.app.SaveDay()
			if err := s.historyStore.Save(rec); err != nil {
				return fmt.Errorf("failed to save record: %w", err)
			}
			if err := s.persist(); err != nil {
				return err
			}

			fmt.Printf("Saved %s: score %.1f, recovery %.1f, %s\n",
				rec.Date, rec.Score, rec.Recovery, rec.Status)
			return nil
		},
	}
}

// historyCmd lists or clears saved days
func historyCmd() *cobra.Command {
	var days int
	var clear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved days",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if clear {
				s.app.ClearHistory()
				if err := s.historyStore.DeleteAll(); err != nil {
					return err
				}
				fmt.Println("History cleared.")
				return nil
			}

			records := s.app.History().Sorted()
			if days > 0 && len(records) > days {
				records = records[len(records)-days:]
			}
			if len(records) == 0 {
				fmt.Println("No saved days yet. Use 'nuance save'.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  score %5.1f  recovery %5.1f  %s\n",
					rec.Date, rec.Score, rec.Recovery, rec.Status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "last", 0, "show only the last N days")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all saved days")
	return cmd
}

// analyticsCmd shows the rolling-window aggregates
func analyticsCmd() *cobra.Command {
	var days int
	var end string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show rolling-window analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.requireFeature(access.FeatureAnalytics); err != nil {
				return err
			}

			if end == "" {
				end = core.Today()
			}
			res, err := analytics.Compute(s.app.History(), s.app.Catalog(), end, days)
			if err != nil {
				return err
			}

			fmt.Printf("Window:       last %d days ending %s (%d saved)\n",
				res.WindowDays, res.EndDate, res.Entries)
			fmt.Printf("Avg score:    %.1f\n", res.AvgScore)
			fmt.Printf("Avg recovery: %.1f\n", res.AvgRecovery)
			fmt.Printf("Drift rate:   %.0f%%\n", res.DriftRate*100)
			fmt.Printf("Streak:       %d (best %d)\n", res.CurrentStreak, res.BestStreak)

			if len(res.TopBehaviors) > 0 {
				fmt.Println("\nTop behaviors:")
				for _, f := range res.TopBehaviors {
					fmt.Printf("  %-24s %d\n", f.Name, f.Count)
				}
			}
			if len(res.TopPenalties) > 0 {
				fmt.Println("\nTop penalties:")
				for _, f := range res.TopPenalties {
					fmt.Printf("  %-24s %d\n", f.Name, f.Count)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "window size in days")
	cmd.Flags().StringVar(&end, "end", "", "window end date (default today)")
	return cmd
}

// coachCmd shows or applies weight recommendations
func coachCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Show catalog weight recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.requireFeature(access.FeatureCoach); err != nil {
				return err
			}

			cfg := coach.DefaultConfig()
			plan, err := coach.Recommend(s.app.Catalog(), s.app.History(), core.Today(), cfg)
			if err != nil {
				return err
			}

			if plan.Empty() {
				fmt.Println("No changes recommended right now.")
				return nil
			}

			for _, ch := range plan.Raise {
				fmt.Printf("raise   %-24s %+.0f   (%s)\n", ch.Name, ch.Delta, ch.Basis)
			}
			for _, ch := range plan.Lower {
				fmt.Printf("lower   %-24s %+.0f   (%s)\n", ch.Name, ch.Delta, ch.Basis)
			}
			for _, ch := range plan.Tighten {
				fmt.Printf("tighten %-24s %+.2f  (%s)\n", ch.Name, ch.Delta, ch.Basis)
			}

			if !apply {
				fmt.Println("\nRun 'nuance coach --apply' to apply (personalization mode required).")
				return nil
			}

			if err := s.app.ApplyCoachPlan(plan, cfg); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Println("\nApplied.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "apply the recommended changes")
	return cmd
}

// catalogCmd lists and edits catalog items
func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and edit the item catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			cat := s.app.Catalog()
			printItems := func(label string, items []core.Item) {
				fmt.Printf("%s:\n", label)
				for _, it := range items {
					place := "parked"
					if it.OnDashboard {
						place = "dashboard"
					}
					switch it.Kind {
					case core.KindPenalty:
						fmt.Printf("  %-28s %-24s x%.2f  %s\n", it.ID, it.Name, it.Multiplier, place)
					default:
						fmt.Printf("  %-28s %-24s w%.0f/r%.0f  %s\n", it.ID, it.Name, it.PerfWeight, it.RecoveryWeight, place)
					}
				}
			}
			printItems("Sliders", cat.SortedSliders())
			printItems("Toggles", cat.SortedToggles())
			printItems("Penalties", cat.SortedPenalties())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <slider|toggle|penalty> <name>",
		Short: "Create a custom item (parked until moved to the dashboard)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.requireFeature(access.FeatureBuilders); err != nil {
				return err
			}

			item, err := s.app.AddItem(core.ItemKind(args[0]), args[1])
			if err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Printf("Created %s %q (%s)\n", item.Kind, item.Name, item.ID)
			return nil
		},
	})

	var toDashboard bool
	moveCmd := &cobra.Command{
		Use:   "move <item-id>...",
		Short: "Move items between the dashboard and the parking lot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.requireFeature(access.FeatureBuilders); err != nil {
				return err
			}

			ids := make([]core.ItemID, len(args))
			for i, a := range args {
				ids[i] = core.ItemID(a)
			}
			if err := s.app.MoveToDashboard(ids, toDashboard); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Printf("Moved %d item(s).\n", len(ids))
			return nil
		},
	}
	moveCmd.Flags().BoolVar(&toDashboard, "dashboard", true, "true = to dashboard, false = park")
	cmd.AddCommand(moveCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.requireFeature(access.FeatureBuilders); err != nil {
				return err
			}

			if err := s.app.DeleteItem(core.ItemID(args[0])); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		},
	})

	return cmd
}

// undoCmd reverts the last catalog or day mutation
func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last catalog or day change",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.Undo(); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	}
}

// settingsCmd flips user-level settings
func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			st := s.app.Settings()
			fmt.Printf("Drift triggers:  %v\n", !st.DisableDriftTriggers)
			fmt.Printf("Personalization: %v\n", st.PersonalizationMode)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "drift-triggers <on|off>",
		Short: "Enable or disable contextual DRIFT triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.app.SetDriftTriggers(on)
			if err := s.persist(); err != nil {
				return err
			}
			printScore(s.app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "personalization <on|off>",
		Short: "Enable or disable personalization mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.app.SetPersonalization(on)
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Printf("Personalization: %v\n", on)
			return nil
		},
	})

	return cmd
}

// tierCmd shows or changes the subscription tier
func tierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tier [Free|Pro|Elite]",
		Short: "Show or change the subscription tier",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if len(args) == 0 {
				gate := s.app.Gate()
				fmt.Printf("Tier:  %s\n", gate.Tier)
				fmt.Printf("Owner: %v\n", gate.OwnerOverride)
				return nil
			}

			tier := access.Tier(args[0])
			switch tier {
			case access.TierFree, access.TierPro, access.TierElite:
			default:
				return fmt.Errorf("unknown tier %q", args[0])
			}
			s.app.SetTier(tier)
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Printf("Tier set to %s.\n", tier)
			return nil
		},
	}
}

// ownerCmd manages the owner PIN override
func ownerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Manage the owner override",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-pin",
		Short: "Set or replace the owner PIN (4-12 digits)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			pin, err := readPIN("New PIN: ")
			if err != nil {
				return err
			}
			confirm, err := readPIN("Confirm PIN: ")
			if err != nil {
				return err
			}
			if pin != confirm {
				return fmt.Errorf("PINs don't match")
			}

			if err := s.app.SetOwnerPIN(pin); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Println("PIN set.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unlock",
		Short: "Unlock all features with the owner PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			pin, err := readPIN("PIN: ")
			if err != nil {
				return err
			}
			if err := s.app.UnlockOwner(pin); err != nil {
				return err
			}
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Println("Owner override enabled.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lock",
		Short: "Disable the owner override",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.app.LockOwner()
			if err := s.persist(); err != nil {
				return err
			}
			fmt.Println("Owner override disabled.")
			return nil
		},
	})

	return cmd
}

func readPIN(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	return string(raw), nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
