// Command mint-token prints a bearer token for a user id, for local testing
// against a server that shares JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/noobsquad/chatcore/internal/auth"
	"github.com/noobsquad/chatcore/internal/config"
)

func main() {
	userID := flag.Int64("user", 0, "user id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("-user must be a positive user id")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	tok, err := auth.NewVerifier(cfg.JWTSecret).Issue(*userID, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok)
}
