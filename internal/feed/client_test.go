package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pbv-lab/internal/logx"
	"pbv-lab/internal/profile"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errStop = errors.New("stop")

func testClient(url string) *Client {
	return NewClient(url, &Config{
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
		PingInterval:      time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
		Subscribe:         []byte(`{"op":"subscribe"}`),
	}).WithLogger(logx.Discard())
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_DeliversTicksAndSkipsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for _, msg := range []string{
			`{"price":10,"volume":1,"timestamp_ms":5}`,
			`{"price":11}`,
			`not json`,
			`{"price":12,"volume":2}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	var got []Tick
	err := testClient(wsURL(server)).Run(context.Background(), func(tk Tick) error {
		got = append(got, tk)
		if len(got) == 2 {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("Run() error = %v, want errStop", err)
	}

	want := []Tick{{Price: 10, Volume: 1, TimestampMs: 5}, {Price: 12, Volume: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ticks = %+v, want %+v", got, want)
	}
}

func TestClient_ReconnectsAndResubscribes(t *testing.T) {
	var connections, subscribes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(msg) == `{"op":"subscribe"}` {
			subscribes.Add(1)
		}

		// One tick per connection, then drop it.
		tick := `{"price":` + string(rune('0'+n)) + `,"volume":1}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(tick))
	}))
	defer server.Close()

	var prices []float64
	err := testClient(wsURL(server)).Run(context.Background(), func(tk Tick) error {
		prices = append(prices, tk.Price)
		if len(prices) == 3 {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("Run() error = %v, want errStop", err)
	}

	if !reflect.DeepEqual(prices, []float64{1, 2, 3}) {
		t.Errorf("prices = %v, want [1 2 3]", prices)
	}
	if got := subscribes.Load(); got != 3 {
		t.Errorf("subscribe frames = %d, want 3", got)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := testClient(wsURL(server)).Run(ctx, func(Tick) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
}

func TestClient_RetriesFailedDial(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := testClient(url).Run(ctx, func(Tick) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
}

func TestWatch_MatchesBatch(t *testing.T) {
	price := []float64{1, 2, 3, 4, 5}
	volume := []float64{10, 20, 30, 40, 50}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for i := range price {
			if err := conn.WriteJSON(Tick{Price: price[i], Volume: volume[i]}); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	p := profile.Params{WindowSize: 3, Bins: 2, Round: -1}
	want, err := profile.PriceByVolume(price, volume, p)
	if err != nil {
		t.Fatalf("PriceByVolume: %v", err)
	}

	var got []*profile.Histogram
	err = Watch(context.Background(), testClient(wsURL(server)), p, func(_ Tick, h *profile.Histogram) error {
		got = append(got, h)
		if len(got) == len(price) {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("Watch() error = %v, want errStop", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("histograms = %v, want %v", got, want)
	}
}

func TestWatch_InvalidParams(t *testing.T) {
	err := Watch(context.Background(), testClient("ws://unused"), profile.Params{WindowSize: 0, Bins: 2}, nil)
	if !errors.Is(err, profile.ErrInvalidParameter) {
		t.Fatalf("Watch() error = %v, want ErrInvalidParameter", err)
	}
}

func TestNewClient_ZeroDurationsUseDefaults(t *testing.T) {
	c := NewClient("ws://unused", &Config{Subscribe: []byte("hi")})

	want := DefaultConfig()
	want.Subscribe = []byte("hi")
	if !reflect.DeepEqual(c.config, want) {
		t.Errorf("config = %+v, want %+v", c.config, want)
	}

	c = NewClient("ws://unused", &Config{ReconnectDelay: time.Minute, PingInterval: -time.Second})
	if c.config.MaxReconnectDelay != time.Minute {
		t.Errorf("MaxReconnectDelay = %v, want %v", c.config.MaxReconnectDelay, time.Minute)
	}
	if c.config.PingInterval != DefaultConfig().PingInterval {
		t.Errorf("PingInterval = %v, want default", c.config.PingInterval)
	}
}

func TestClient_ZeroPingIntervalStillReads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"price":7,"volume":3}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := NewClient(wsURL(server), &Config{ReconnectDelay: 10 * time.Millisecond}).WithLogger(logx.Discard())
	var got Tick
	err := c.Run(context.Background(), func(tk Tick) error {
		got = tk
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("Run() error = %v, want errStop", err)
	}
	if got.Price != 7 || got.Volume != 3 {
		t.Errorf("tick = %+v, want price 7 volume 3", got)
	}
}
