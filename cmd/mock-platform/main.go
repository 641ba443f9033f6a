// A standalone mock of the paywall platform backend, for developing and
// demoing the CLI without the real service. Point the CLI at it with
// CREATOR_API_BASE_URL and CREATOR_API_TOKEN.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oneclicksub/creatorctl/internal/platform/mockapi"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	token := flag.String("token", "dev-token", "bearer token the mock accepts")
	flag.Parse()

	mock := mockapi.New(*token)

	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mock.Router(),
	}

	go func() {
		log.Printf("Mock platform listening on %s (token: %s)", addr, *token)
		log.Printf("Simulate a bot confirmation with: curl -X POST http://localhost%s/_simulator/projects/1/connected", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down mock platform...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
