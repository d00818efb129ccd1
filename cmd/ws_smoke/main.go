package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"guess_dapp/internal/logger"
)

// Drives a running host through connect, fetch, guess and reveal while
// printing every state frame from the stream.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	passphrase := flag.String("passphrase", os.Getenv("WALLET_PASSPHRASE"), "keystore passphrase")
	guess := flag.String("guess", "0", "guess to submit")
	flag.Parse()

	logger.Init("debug", false)

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("http://127.0.0.1:%s/api/v1", port)
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/api/v1/ws", port)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatal("dial stream", logger.Err(err))
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			logger.Info("frame", "body", string(msg))
		}
	}()

	var connect struct {
		Account string `json:"account"`
		Token   string `json:"token"`
	}
	if err := call(http.MethodPost, base+"/wallet/connect", "", map[string]string{"passphrase": *passphrase}, &connect); err != nil {
		logger.Fatal("connect", logger.Err(err))
	}
	logger.Info("connected", "account", connect.Account)

	steps := []struct {
		path string
		body any
	}{
		{"/game/fetch", nil},
		{"/game/guess", map[string]string{"guess": *guess}},
		{"/game/reveal", nil},
	}
	for _, s := range steps {
		var out map[string]any
		if err := call(http.MethodPost, base+s.path, connect.Token, s.body, &out); err != nil {
			logger.Error("step failed", "path", s.path, logger.Err(err))
			continue
		}
		logger.Info("step", "path", s.path, "response", out)
	}

	// let the last frames arrive
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	logger.Info("smoke test finished")
}

func call(method, url, token string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %s: %d %s", method, url, res.StatusCode, bytes.TrimSpace(msg))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
