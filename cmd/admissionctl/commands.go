package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prohmpiriya/eventic-admission/internal/di"
	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/effects"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/migrations"
	"github.com/prohmpiriya/eventic-admission/pkg/database"
	"github.com/prohmpiriya/eventic-admission/pkg/middleware"
	pkgredis "github.com/prohmpiriya/eventic-admission/pkg/redis"
)

func migrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), di.PostgresConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db.Pool(), migrations.FS)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}

func seedCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load events, validators and tickets into PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), di.PostgresConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			redis, err := pkgredis.NewClient(cmd.Context(), di.RedisConfig(cfg))
			if err != nil {
				return err
			}
			defer redis.Close()

			stores, err := di.NewPostgresStores(cmd.Context(), db, redis, cfg)
			if err != nil {
				return err
			}
			seed, err := repository.LoadSeed(cmd.Context(), args[0], stores.EventCreator, stores.TicketCreator)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d events and %d tickets\n", len(seed.Events), len(seed.Tickets))
			return nil
		},
	}
}

func rulesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "Inspect the special effect rule table"}
	cmd.PersistentFlags().String("file", "", "rule file (default: built-in table)")
	cmd.AddCommand(rulesListCmd(v))
	cmd.AddCommand(rulesSimulateCmd(v))
	return cmd
}

func rulesListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			tbl, err := effects.LoadTable(file)
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), tbl.Rules())
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"#", "Name", "Effect", "Priority", "Condition", "Odds"})
			for i, r := range tbl.Rules() {
				tw.AppendRow(table.Row{i + 1, r.Name, r.Effect, r.Priority, r.Condition.String(), formatOdds(r.Probability)})
			}
			tw.Render()
			return nil
		},
	}
}

func rulesSimulateCmd(v *viper.Viper) *cobra.Command {
	var (
		name    string
		date    string
		trials  int
		seed    int64
		golden  float64
		noMagic bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Estimate effect frequencies for an event over many first grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			tbl, err := effects.LoadTable(file)
			if err != nil {
				return err
			}
			starts, err := time.Parse("2006-01-02", date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}
			if trials <= 0 {
				return fmt.Errorf("--trials must be positive")
			}

			engine := effects.NewEngine(&effects.EngineConfig{
				Table:             tbl,
				Rand:              effects.NewRand(seed),
				GoldenProbability: golden,
			})
			event := &domain.Event{
				Name:                  name,
				StartsAt:              starts,
				SpecialEffectsEnabled: !noMagic,
				GoldenTicketEnabled:   golden > 0,
			}
			res := effects.Simulate(engine, event, trials)

			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderSimulation(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "event name")
	cmd.Flags().StringVar(&date, "date", time.Now().UTC().Format("2006-01-02"), "event start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&trials, "trials", 100000, "number of first grants to draw")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed; 0 picks a random one")
	cmd.Flags().Float64Var(&golden, "golden", 0, "golden ticket probability; 0 disables the golden draw")
	cmd.Flags().BoolVar(&noMagic, "no-effects", false, "disable thematic effects")
	return cmd
}

func renderSimulation(w io.Writer, res effects.SimulationResult) {
	rule := res.Rule
	if rule == "" {
		rule = "(none)"
	}
	// go-pretty wraps titles to the table width
	fmt.Fprintf(w, "%d trials, matched rule: %s\n", res.Trials, rule)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Outcome", "Count", "Rate"})

	types := make([]string, 0, len(res.Effects))
	for t := range res.Effects {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		n := res.Effects[domain.EffectType(t)]
		tw.AppendRow(table.Row{t, n, rate(n, res.Trials)})
	}
	tw.AppendRow(table.Row{"golden", res.Golden, rate(res.Golden, res.Trials)})
	tw.Render()
}

func geoCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{Use: "geo", Short: "Geofence helpers"}

	var radius float64
	distance := &cobra.Command{
		Use:   "distance [--radius m] -- <lat1> <lon1> <lat2> <lon2>",
		Short: "Great-circle distance in meters between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals := make([]float64, 4)
			for i, a := range args {
				f, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid coordinate %q: %w", a, err)
				}
				vals[i] = f
			}
			a := domain.Coordinates{Latitude: vals[0], Longitude: vals[1]}
			b := domain.Coordinates{Latitude: vals[2], Longitude: vals[3]}
			if !a.Valid() || !b.Valid() {
				return fmt.Errorf("coordinates out of range")
			}

			d := domain.Distance(a, b)
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"distance_meters": d,
					"radius_meters":   radius,
					"within":          d <= radius,
				})
			}
			within := "outside"
			if d <= radius {
				within = "within"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f m (%s %.0f m radius)\n", d, within, radius)
			return nil
		},
	}
	distance.Flags().Float64Var(&radius, "radius", 300, "geofence radius in meters")
	// negative longitudes would otherwise parse as shorthand flags
	distance.Flags().SetInterspersed(false)
	cmd.AddCommand(distance)
	return cmd
}

func tokenCmd(v *viper.Viper) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to mint tokens in production")
			}

			now := time.Now()
			claims := &middleware.Claims{UserID: userID, Role: role}
			claims.IssuedAt = jwt.NewNumericDate(now)
			claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
			token, err := middleware.GenerateToken(claims, &middleware.JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed")
	cmd.Flags().StringVar(&role, "role", "", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func formatOdds(p float64) string {
	if p <= 0 {
		return "never"
	}
	return fmt.Sprintf("1 in %.0f", 1/p)
}

func rate(n, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", 100*float64(n)/float64(total))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
