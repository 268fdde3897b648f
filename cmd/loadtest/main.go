// Package main is a load test for concurrent likes and the thought event stream.
// It checks that N parallel likes end as exactly +N hearts and counts the events
// each websocket subscriber saw.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	LikesSent          int64
	LikesFailed        int64
	ConnectionsSuccess int64
	ConnectionsFailed  int64
	EventsReceived     int64
	Errors             int64
}

var metrics Metrics

type thought struct {
	ID     string `json:"id"`
	Hearts int    `json:"hearts"`
}

type event struct {
	Type    string  `json:"type"`
	Thought thought `json:"thought"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	likes := flag.Int("likes", 200, "Number of concurrent likes")
	subscribers := flag.Int("subscribers", 10, "Number of websocket subscribers")
	settle := flag.Duration("settle", 2*time.Second, "How long to wait for events after the last like")
	flag.Parse()

	log.Printf("Starting like load test against %s (%d likes, %d subscribers)", *host, *likes, *subscribers)

	token, err := signup(*host, gofakeit.Email(), gofakeit.Password(true, true, true, false, false, 16))
	if err != nil {
		log.Fatalf("signup failed: %v", err)
	}

	created, err := createThought(*host, token, "Load test: "+gofakeit.HipsterSentence(5))
	if err != nil {
		log.Fatalf("create thought failed: %v", err)
	}
	log.Printf("Created thought %s", created.ID)

	stop := make(chan struct{})
	var subs sync.WaitGroup
	for i := 0; i < *subscribers; i++ {
		subs.Add(1)
		go subscribe(*host, created.ID, stop, &subs)
	}
	// Give the subscribers time to connect before the burst.
	time.Sleep(500 * time.Millisecond)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *likes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := like(*host, created.ID); err != nil {
				atomic.AddInt64(&metrics.LikesFailed, 1)
				return
			}
			atomic.AddInt64(&metrics.LikesSent, 1)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	time.Sleep(*settle)
	close(stop)
	subs.Wait()

	final, err := getThought(*host, created.ID)
	if err != nil {
		log.Fatalf("read back failed: %v", err)
	}

	printMetrics(elapsed, final.Hearts, *subscribers)
	if int64(final.Hearts) != metrics.LikesSent {
		log.Printf("FAIL: hearts=%d, successful likes=%d", final.Hearts, metrics.LikesSent)
		os.Exit(1)
	}
}

func postJSON(u, token string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return httpClient.Do(req)
}

func signup(host, email, password string) (string, error) {
	resp, err := postJSON(fmt.Sprintf("http://%s/signup", host), "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("signup failed with status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

func createThought(host, token, message string) (*thought, error) {
	resp, err := postJSON(fmt.Sprintf("http://%s/thoughts", host), token, map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create failed with status %d", resp.StatusCode)
	}
	var t thought
	return &t, json.NewDecoder(resp.Body).Decode(&t)
}

func like(host, id string) error {
	resp, err := postJSON(fmt.Sprintf("http://%s/thoughts/%s/like", host, id), "", struct{}{})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("like failed with status %d", resp.StatusCode)
	}
	return nil
}

func getThought(host, id string) (*thought, error) {
	resp, err := httpClient.Get(fmt.Sprintf("http://%s/thoughts/%s", host, id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get failed with status %d", resp.StatusCode)
	}
	var t thought
	return &t, json.NewDecoder(resp.Body).Decode(&t)
}

// subscribe counts like events for thoughtID until stop closes.
func subscribe(host, thoughtID string, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	go func() {
		<-stop
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.SetReadDeadline(time.Now().Add(time.Second))
	}()

	for {
		var ev event
		if err := c.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				select {
				case <-stop:
				default:
					atomic.AddInt64(&metrics.Errors, 1)
				}
			}
			return
		}
		if ev.Type == "thought_liked" && ev.Thought.ID == thoughtID {
			atomic.AddInt64(&metrics.EventsReceived, 1)
		}
	}
}

func printMetrics(elapsed time.Duration, hearts, subscribers int) {
	log.Println("==================================")
	log.Printf("Likes sent:           %d", metrics.LikesSent)
	log.Printf("Likes failed:         %d", metrics.LikesFailed)
	log.Printf("Final hearts:         %d", hearts)
	log.Printf("Like burst took:      %v", elapsed)
	log.Printf("Subscribers up:       %d/%d", metrics.ConnectionsSuccess, subscribers)
	log.Printf("Like events received: %d (want %d)", metrics.EventsReceived, metrics.LikesSent*metrics.ConnectionsSuccess)
	log.Printf("Errors:               %d", metrics.Errors)
	log.Println("==================================")
}
