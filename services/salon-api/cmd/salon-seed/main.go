// Command salon-seed loads categories, services and staff accounts from a
// YAML file into the salon database. It is safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/migrations"
)

func main() {
	path := flag.String("file", "seed.yaml", "seed file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger := runtime.NewLogger("salon-seed")

	f, err := os.Open(*path)
	if err != nil {
		logger.Error("open seed file failed", "err", err, "file", *path)
		os.Exit(1)
	}
	seed, err := parseSeed(f)
	_ = f.Close()
	if err != nil {
		logger.Error("invalid seed file", "err", err)
		os.Exit(1)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	ctx, stop := runtime.SignalContext()
	defer stop()

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool, migrations.FS, ".", logger); err != nil {
		logger.Error("db migration failed", "err", err)
		os.Exit(1)
	}

	if err := apply(ctx, seed, storage.NewCatalog(pool), storage.NewProfiles(pool)); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
	logger.Info("seed applied",
		"categories", len(seed.Categories),
		"services", len(seed.Services),
		"admins", len(seed.Admins),
	)
}

type catalogWriter interface {
	UpsertCategory(ctx context.Context, c model.ServiceCategory) (model.ServiceCategory, error)
	UpsertServiceByName(ctx context.Context, s model.Service) (model.Service, error)
}

type profileWriter interface {
	UpsertByEmail(ctx context.Context, in storage.NewProfile) (model.Profile, error)
}

func apply(ctx context.Context, seed seedFile, catalog catalogWriter, profiles profileWriter) error {
	categoryIDs := map[string]string{}
	for _, c := range seed.Categories {
		saved, err := catalog.UpsertCategory(ctx, model.ServiceCategory{Name: c.Name, Slug: c.Slug})
		if err != nil {
			return err
		}
		categoryIDs[saved.Slug] = saved.ID
	}
	for _, s := range seed.Services {
		if _, err := catalog.UpsertServiceByName(ctx, s.toModel(categoryIDs[s.Category])); err != nil {
			return err
		}
	}
	for _, a := range seed.Admins {
		in := storage.NewProfile{
			FullName: strings.TrimSpace(a.FullName),
			Email:    a.Email,
			Phone:    strings.TrimSpace(a.Phone),
			IsAdmin:  model.ParseAdminFlag(a.IsAdmin),
		}
		if a.PasswordEnv != "" {
			hash, err := auth.HashPassword(os.Getenv(a.PasswordEnv))
			if err != nil {
				return err
			}
			in.PasswordHash = hash
		}
		if _, err := profiles.UpsertByEmail(ctx, in); err != nil {
			return err
		}
	}
	return nil
}
