package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/migrations"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// Usage: migrate [up | down <steps> | force <version> | version]
func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal(err, "open db")
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatal(err, "ping db")
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err, "db driver")
	}

	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatal(err, "source driver")
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.Fatal(err, "create migrator")
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(os.Args) >= 3 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps <= 0 {
				log.Fatal(fmt.Errorf("invalid steps %q", os.Args[2]), "parse arguments")
			}
		}
		err = m.Steps(-steps)
	case "force":
		if len(os.Args) < 3 {
			log.Fatal(errors.New("missing version"), "parse arguments")
		}
		version, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			log.Fatal(convErr, "invalid version")
		}
		err = m.Force(version)
	case "version":
		version, dirty, verErr := m.Version()
		if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
			log.Fatal(verErr, "read version")
		}
		log.Info("Schema version", "version", version, "dirty", dirty)
		return
	default:
		log.Fatal(fmt.Errorf("unknown command %q", cmd), "parse arguments")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal(err, "migrate "+cmd)
	}
	log.Info("Migrations complete", "command", cmd)
}
