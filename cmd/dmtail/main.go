// Command dmtail follows a conversation's live direct messages and can send
// lines read from stdin into it.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type           string          `json:"type"`
	ConversationID uint            `json:"conversation_id"`
	UserID         uint            `json:"user_id"`
	Payload        json.RawMessage `json:"payload"`
}

type dmPayload struct {
	Text     string    `json:"text"`
	AuthorID uint      `json:"author_id"`
	Author   string    `json:"author"`
	SentAt   time.Time `json:"sent_at"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var received, sent int64

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	username := flag.String("username", "alice", "Account username")
	password := flag.String("password", "password123", "Account password")
	convID := flag.Uint("conversation", 0, "Conversation ID to follow")
	send := flag.Bool("send", false, "Send each stdin line as a direct message")
	flag.Parse()

	if *convID == 0 {
		log.Fatal("-conversation is required")
	}

	token, err := login(*host, *username, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: fmt.Sprintf("/ws/conversations/%d", *convID)}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			log.Fatalf("dial %s: %v (status %d)", u.String(), err, resp.StatusCode)
		}
		log.Fatalf("dial %s: %v", u.String(), err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(c)
	}()

	if *send {
		go writeLoop(c, bufio.NewScanner(os.Stdin))
	}

	select {
	case <-done:
	case <-interrupt:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	log.Printf("received=%d sent=%d", atomic.LoadInt64(&received), atomic.LoadInt64(&sent))
}

func login(host, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/login", host), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func readLoop(c *websocket.Conn) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read: %v", err)
			}
			return
		}
		printEvent(data)
	}
}

func printEvent(data []byte) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("undecodable frame: %s", data)
		return
	}
	switch ev.Type {
	case "dm":
		var dm dmPayload
		if err := json.Unmarshal(ev.Payload, &dm); err != nil {
			log.Printf("bad dm payload: %v", err)
			return
		}
		atomic.AddInt64(&received, 1)
		fmt.Printf("[%s] %s: %s\n", dm.SentAt.Local().Format(time.Kitchen), dm.Author, dm.Text)
	case "error":
		var p errorPayload
		_ = json.Unmarshal(ev.Payload, &p)
		log.Printf("server error: %s", p.Message)
	case "connected":
		log.Printf("connected to conversation %d", ev.ConversationID)
	default:
		log.Printf("event %s", ev.Type)
	}
}

func writeLoop(c *websocket.Conn, in *bufio.Scanner) {
	for in.Scan() {
		text := strings.TrimSpace(in.Text())
		if text == "" {
			continue
		}
		msg, _ := json.Marshal(map[string]string{"type": "dm", "text": text})
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("write: %v", err)
			return
		}
		atomic.AddInt64(&sent, 1)
	}
}
