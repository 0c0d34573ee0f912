// Command migrate manages the catspot schema.
//
//	migrate up       apply pending embedded migrations
//	migrate status   list applied, pending and edited migrations
//	migrate down     revert the newest applied migration
//	migrate auto     GORM AutoMigrate, for throwaway local databases
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"catspot/internal/config"
	"catspot/internal/database"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate <up|status|down|auto>")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return err
	}

	if cmd == "auto" {
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		log.Println("models migrated")
		return nil
	}

	migrations, err := database.Migrations()
	if err != nil {
		return err
	}
	m := database.NewMigrator(db, migrations)

	switch cmd {
	case "up":
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		log.Printf("applied %d migration(s)", n)
	case "down":
		mig, err := m.Down(ctx)
		if err != nil {
			return err
		}
		log.Printf("reverted %s", mig)
	case "status":
		st, err := m.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(st)
	default:
		flag.Usage()
		os.Exit(2)
	}
	return nil
}

func printStatus(st *database.SchemaStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	for _, v := range st.Applied {
		fmt.Fprintf(w, "applied\t%06d_%s\t%s\n", v.Version, v.Name, v.AppliedAt.Format("2006-01-02 15:04"))
	}
	for _, m := range st.Pending {
		fmt.Fprintf(w, "pending\t%s\t\n", m)
	}
	for _, m := range st.Drifted {
		fmt.Fprintf(w, "edited\t%s\t\n", m)
	}
	for _, v := range st.Unknown {
		fmt.Fprintf(w, "unknown\t%06d\t\n", v)
	}
}
