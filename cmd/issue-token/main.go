package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/logger"
	"github.com/stemsi/exstem-assessment/internal/service"
	"golang.org/x/term"
)

const defaultSecret = "change-this-to-a-secure-random-string"

var adminPermissions = []string{
	service.PermAttemptsGrade,
	service.PermAttemptsReset,
	service.PermAttemptsAudit,
	service.PermExamsRead,
	service.PermExamsRefresh,
	service.PermExamsMonitor,
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Development Token ===")

	// The placeholder secret would mint tokens no deployed server accepts.
	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultSecret {
		fmt.Print("Enter JWT Secret: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("Error reading secret")
			return
		}
		if len(raw) < 16 {
			fmt.Println("Error: Secret must be at least 16 characters")
			return
		}
		cfg.JWTSecret = string(raw)
	}

	// Token type
	fmt.Print("Token Type (student/admin): ")
	typ, _ := reader.ReadString('\n')
	tokenType := service.TokenType(strings.ToLower(strings.TrimSpace(typ)))
	if tokenType != service.TokenTypeStudent && tokenType != service.TokenTypeAdmin {
		fmt.Println("Error: Token type must be student or admin")
		return
	}

	// User ID
	fmt.Print("Enter User ID: ")
	idStr, _ := reader.ReadString('\n')
	userID, err := strconv.Atoi(strings.TrimSpace(idStr))
	if err != nil || userID <= 0 {
		fmt.Println("Error: Invalid User ID")
		return
	}

	// Permissions
	var permissions []string
	if tokenType == service.TokenTypeAdmin {
		fmt.Println("Available permissions:")
		for i, p := range adminPermissions {
			fmt.Printf("  %d. %s\n", i+1, p)
		}
		fmt.Print("Permissions (comma separated, * for all): ")
		line, _ := reader.ReadString('\n')
		permissions, err = parsePermissions(line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}

	// ─── Issue Token ───────────────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	token, err := authService.IssueToken(tokenType, userID, permissions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().
		Str("type", string(tokenType)).
		Int("user_id", userID).
		Strs("permissions", permissions).
		Dur("expires_in", cfg.JWTExpiry).
		Msg("Token issued")
	fmt.Println(token)
}

// parsePermissions accepts permission codes or their list numbers.
func parsePermissions(line string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "*" {
			return []string{"*"}, nil
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n < 1 || n > len(adminPermissions) {
				return nil, fmt.Errorf("no permission numbered %d", n)
			}
			out = append(out, adminPermissions[n-1])
			continue
		}
		known := false
		for _, p := range adminPermissions {
			if p == part {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown permission %q", part)
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one permission is required")
	}
	return out, nil
}
