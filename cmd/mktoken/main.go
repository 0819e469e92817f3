// Command mktoken prints an operator bearer token signed with JWT_SECRET,
// for local use against the admin endpoints.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/travelhub/busticket/internal/middleware"
	"github.com/travelhub/busticket/internal/utils"
)

func main() {
	var (
		userID = flag.Uint64("user", 1, "subject user id")
		role   = flag.String("role", middleware.RoleOwner, "role claim (OWNER, ADMIN, CUSTOMER)")
		ttl    = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("reading .env: %v", err)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(secret, *userID, *role, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok.Token)
}
