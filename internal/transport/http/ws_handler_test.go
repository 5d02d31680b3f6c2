package http

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialRound(t *testing.T, client *http.Client, base string) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(base)
	header := http.Header{}
	for _, c := range client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+base[len("http"):]+"/ws", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readRound(t *testing.T, conn *websocket.Conn) roundJSON {
	t.Helper()
	var msg struct {
		Type    string    `json:"type"`
		Payload roundJSON `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "round" {
		t.Fatalf("expected round message, got %s", msg.Type)
	}
	return msg.Payload
}
