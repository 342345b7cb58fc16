// Command admin manages roles and bans from the shell, for bootstrapping the
// first admin or recovering when nobody can log in.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"resort/internal/cache"
	"resort/internal/config"
	"resort/internal/database"
	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/repository"

	"gorm.io/gorm"
)

const usage = `Usage:
  admin promote <id|username|email>   grant the admin role
  admin demote <id|username|email>    reset an admin to guest
  admin ban <id|username|email>       ban a non-admin profile
  admin unban <id|username|email>     lift a ban
  admin list-admins                   list every admin`

var errUsage = errors.New(usage)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.InitLogger(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// so role and ban changes evict the server's cached profiles
	cache.InitRedis(cfg.RedisURL)

	if err := run(context.Background(), db, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *gorm.DB, args []string, out io.Writer) error {
	profiles := repository.NewProfileRepository(db)

	if args[0] == "list-admins" {
		admins, err := profiles.ListAdmins(ctx)
		if err != nil {
			return err
		}
		if len(admins) == 0 {
			fmt.Fprintln(out, "No admins found")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tBANNED")
		for _, a := range admins {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", a.ID, a.Username, a.FullName, a.IsBanned)
		}
		return w.Flush()
	}

	if len(args) < 2 {
		return errUsage
	}
	p, err := resolveProfile(ctx, db, profiles, args[1])
	if err != nil {
		return err
	}

	switch args[0] {
	case "promote":
		if p.Role == models.RoleAdmin {
			fmt.Fprintf(out, "%s (ID %d) is already an admin\n", p.Username, p.ID)
			return nil
		}
		if err := profiles.SetRole(ctx, p.ID, models.RoleAdmin); err != nil {
			return err
		}
		fmt.Fprintf(out, "Promoted %s (ID %d) to admin\n", p.Username, p.ID)
	case "demote":
		if p.Role != models.RoleAdmin {
			fmt.Fprintf(out, "%s (ID %d) is not an admin\n", p.Username, p.ID)
			return nil
		}
		if err := profiles.SetRole(ctx, p.ID, models.RoleGuest); err != nil {
			return err
		}
		fmt.Fprintf(out, "Demoted %s (ID %d) to guest\n", p.Username, p.ID)
	case "ban":
		if p.Role == models.RoleAdmin {
			return fmt.Errorf("%s is an admin; demote before banning", p.Username)
		}
		if err := profiles.SetBanned(ctx, p.ID, true); err != nil {
			return err
		}
		fmt.Fprintf(out, "Banned %s (ID %d)\n", p.Username, p.ID)
	case "unban":
		if err := profiles.SetBanned(ctx, p.ID, false); err != nil {
			return err
		}
		fmt.Fprintf(out, "Unbanned %s (ID %d)\n", p.Username, p.ID)
	default:
		return errUsage
	}
	return nil
}

// resolveProfile accepts a numeric id, an email or a username.
func resolveProfile(ctx context.Context, db *gorm.DB, profiles repository.ProfileRepository, ref string) (*models.Profile, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return profiles.GetByID(ctx, uint(id))
	}
	if strings.Contains(ref, "@") {
		user, err := repository.NewUserRepository(db).GetByEmail(ctx, strings.ToLower(ref))
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("no account with email %s", ref)
		}
		return profiles.GetByID(ctx, user.ID)
	}
	p, err := profiles.GetByUsername(ctx, ref)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no profile named %s", ref)
	}
	return p, nil
}
