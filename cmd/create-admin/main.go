package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/database"
	"github.com/stemsi/ujian-proctor/internal/logger"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
	"github.com/stemsi/ujian-proctor/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	adminRepo := repository.NewAdminRepository(pool)
	authService := service.NewAuthService(cfg, nil)
	loginService := service.NewLoginService(nil, nil, authService, adminRepo, log)

	// The first admin defaults to superadmin; later ones to proctor.
	superadmins, err := adminRepo.CountByRole(ctx, model.RoleSuperAdmin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count admins")
	}
	defaultRole := model.RoleProctor
	if superadmins == 0 {
		defaultRole = model.RoleSuperAdmin
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	fmt.Printf("Enter Role [%s/%s] (default %s): ", model.RoleSuperAdmin, model.RoleProctor, defaultRole)
	roleStr, _ := reader.ReadString('\n')
	role := model.Role(strings.ToLower(strings.TrimSpace(roleStr)))
	switch role {
	case "":
		role = defaultRole
	case model.RoleSuperAdmin, model.RoleProctor:
	default:
		fmt.Printf("Error: unknown role %q\n", role)
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	admin, err := loginService.CreateAdmin(ctx, email, name, password, role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s, %s) created with ID: %d\n", admin.Name, admin.Email, admin.Role, admin.ID)
}
