package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"taskfi_backend/internal/service"
)

// Connects to the running server's event stream and prints whatever the hub
// pushes for the given address. Trigger a login or task verify in another
// terminal to see events arrive.
func main() {
	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET not set")
	}

	address := os.Getenv("TEST_ADDRESS")
	if address == "" {
		address = "0x00000000000000000000000000000000deadbeef"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	service.InitJWT()
	token, err := service.GenerateJWT(address)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	log.Printf("listening for events for %s, ctrl-c to stop", address)
	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("read: %v", err)
		}
		log.Printf("event: %s", string(msg))
	}
}
