// Command dbtool runs operator tasks against the ticketing database.
//
//	dbtool migrate
//	dbtool create-admins -admin-password S3cret!pw -organizer-password 0rg!pass
//	dbtool clean-data -yes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dbtool <migrate|create-admins|clean-data> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	logger := log.New("dbtool")
	logger.SetHeader(`${time_rfc3339} ${level}`)

	cmd, args := os.Args[1], os.Args[2:]
	var run func(ctx context.Context, cfg config.Config, logger *log.Logger) error
	switch cmd {
	case "migrate":
		run = migrate
	case "create-admins":
		run = createAdmins(args)
	case "clean-data":
		run = cleanData(args)
	default:
		usage()
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("%s: %v", cmd, err)
	}
}

func open(cfg config.Config) (*repository.Store, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return repository.NewStore(db), nil
}

func migrate(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	store, err := open(cfg)
	if err != nil {
		return err
	}
	defer store.DB().Close()
	if err := database.Migrate(ctx, store.DB()); err != nil {
		return err
	}
	logger.Info("schema up to date")
	return nil
}

// account is one seeded login.
type account struct {
	name, email, password string
	role                  model.Role
}

func createAdmins(args []string) func(context.Context, config.Config, *log.Logger) error {
	fs := flag.NewFlagSet("create-admins", flag.ExitOnError)
	domain := fs.String("domain", "eventhub.com", "email domain of the seeded accounts")
	adminPass := fs.String("admin-password", os.Getenv("DBTOOL_ADMIN_PASSWORD"), "administrator password")
	orgPass := fs.String("organizer-password", os.Getenv("DBTOOL_ORGANIZER_PASSWORD"), "password shared by the organizer accounts")
	organizers := fs.Int("organizers", 2, "number of organizer accounts")
	_ = fs.Parse(args)

	return func(ctx context.Context, cfg config.Config, logger *log.Logger) error {
		if *adminPass == "" || (*organizers > 0 && *orgPass == "") {
			return errors.New("admin and organizer passwords are required (flags or DBTOOL_*_PASSWORD)")
		}
		accounts := []account{{"System Administrator", "admin@" + *domain, *adminPass, model.RoleAdministrator}}
		for i := 1; i <= *organizers; i++ {
			accounts = append(accounts, account{
				name:     fmt.Sprintf("Event Organizer %d", i),
				email:    fmt.Sprintf("organizer%d@%s", i, *domain),
				password: *orgPass,
				role:     model.RoleOrganizer,
			})
		}

		store, err := open(cfg)
		if err != nil {
			return err
		}
		defer store.DB().Close()
		users := repository.NewUserRepo(store.DB())

		return store.WithTx(ctx, func(ctx context.Context) error {
			for _, a := range accounts {
				if err := seed(ctx, users, a, cfg.BcryptCost); err != nil {
					return fmt.Errorf("%s: %w", a.email, err)
				}
				logger.Infoj(log.JSON{"email": a.email, "role": a.role})
			}
			return nil
		})
	}
}

// seed creates the account, or promotes an existing one with that email.
func seed(ctx context.Context, users *repository.UserRepo, a account, cost int) error {
	_, err := users.Create(ctx, a.name, a.email, a.password, a.role, cost)
	if !errors.Is(err, repository.ErrEmailExists) {
		return err
	}
	u, err := users.GetByEmail(ctx, a.email)
	if err != nil {
		return err
	}
	return users.SetRole(ctx, u.ID, a.role)
}

func cleanData(args []string) func(context.Context, config.Config, *log.Logger) error {
	fs := flag.NewFlagSet("clean-data", flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm deleting every venue, event, ticket and order")
	_ = fs.Parse(args)

	return func(ctx context.Context, cfg config.Config, logger *log.Logger) error {
		if !*yes {
			return errors.New("refusing to clean without -yes")
		}
		store, err := open(cfg)
		if err != nil {
			return err
		}
		defer store.DB().Close()
		if err := store.CleanData(ctx); err != nil {
			return err
		}
		logger.Info("all data deleted except users and refresh tokens")
		return nil
	}
}
