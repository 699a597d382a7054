// identity-stub runs the in-memory identity backend for local development,
// pre-seeded with one verified and one unverified account.
package main

import (
	"flag"
	"log"

	"github.com/ruralshare/authflow/internal/identitytest"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	srv := identitytest.NewServer()
	srv.Seed("Asha", "asha@example.com", "+919876543210", "Secret123", "individual", true)
	srv.Seed("Ravi", "ravi@example.com", "+919812345678", "Secret123", "FPO", false)

	log.Printf("identity stub listening on %s", *addr)
	if err := srv.Run(*addr); err != nil {
		log.Fatal(err)
	}
}
