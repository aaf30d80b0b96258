package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Dials /ws/snake, authenticates, starts a game and drives it until game
// over. Needs a bearer token from cmd/create_test_user.
func main() {
	token := os.Getenv("SMOKE_TOKEN")
	if token == "" {
		log.Fatal("SMOKE_TOKEN not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	ticks := flag.Int("ticks", 100, "max state frames to consume")
	flag.Parse()

	// 127.0.0.1 to prefer IPv4 over [::1]
	url := fmt.Sprintf("ws://127.0.0.1:%s/ws/snake", port)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("Bearer "+token)); err != nil {
		log.Fatalf("auth frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`"Start"`)); err != nil {
		log.Fatalf("start: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ChangeDirection":"Up"}`)); err != nil {
		log.Fatalf("turn: %v", err)
	}

	for i := 0; i < *ticks; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("read: %v", err)
		}

		if string(msg) == `"GameOver"` {
			fmt.Println("game over frame received")
			return
		}
		var state struct {
			Score    int  `json:"score"`
			GameOver bool `json:"game_over"`
			Started  bool `json:"started"`
		}
		if err := json.Unmarshal(msg, &state); err != nil {
			continue
		}
		fmt.Printf("frame %d: started=%v score=%d game_over=%v\n", i, state.Started, state.Score, state.GameOver)
	}
	fmt.Println("smoke finished without game over")
}
