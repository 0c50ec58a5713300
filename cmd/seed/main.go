package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/school-rbac-api/config"
	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
	pginfra "github.com/oksasatya/school-rbac-api/internal/infrastructure/postgres"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

// seed creates a demo school with every standard role enabled at its defaults,
// an admin user with an ADMIN staff record, and prints a token for that admin.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:         cfg.PostgresDSN(),
		AppName:     cfg.AppName + "-seed",
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	schools := pginfra.NewSchoolRepository(pool)
	staff := pginfra.NewStaffRepository(pool)
	perms := pginfra.NewRolePermissionRepository(pool)

	email := envOr("SEED_ADMIN_EMAIL", "admin@school.test")
	password := envOr("SEED_ADMIN_PASSWORD", "password123")
	schoolName := envOr("SEED_SCHOOL_NAME", "Demo School")

	var (
		school = &entity.School{
			Name:       schoolName,
			RoleConfig: entity.RoleConfig{EnabledRoles: entity.StandardRoles()},
		}
		admin *entity.User
	)
	err = pginfra.NewTransactor(pool).WithinTx(ctx, func(ctx context.Context) error {
		admin, err = users.GetByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			hash, herr := helpers.HashPassword(password)
			if herr != nil {
				return herr
			}
			admin = &entity.User{Email: email, Password: hash, Name: "School Admin"}
			err = users.Create(ctx, admin)
		}
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		if err := schools.Create(ctx, school); err != nil {
			return fmt.Errorf("seed school: %w", err)
		}
		for _, role := range school.RoleConfig.EnabledRoles {
			if err := perms.Upsert(ctx, school.ID, role, entity.DefaultPermissionsFor(role)); err != nil {
				return fmt.Errorf("seed %s permissions: %w", role, err)
			}
		}
		return staff.Create(ctx, &entity.Staff{UserID: admin.ID, SchoolID: school.ID, Role: entity.RoleAdmin, Status: entity.StaffActive})
	})
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	token, exp, err := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL).GenerateAccessToken(admin.ID, school.ID)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Printf("seeded school: id=%s name=%s roles=%v\n", school.ID, school.Name, school.RoleConfig.EnabledRoles)
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", admin.ID, admin.Email, password)
	fmt.Printf("access token (expires %s):\n%s\n", exp.Format("2006-01-02 15:04:05Z07:00"), token)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
