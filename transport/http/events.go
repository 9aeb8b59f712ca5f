package http

import (
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventFrame is one event-log record as pushed over the tailing websocket.
type eventFrame struct {
	ID   string `json:"id"`
	Info []byte `json:"info"`
}

// tailEvents upgrades the connection and streams every committed event
// whose id is greater than the client's since query parameter (default: 0,
// meaning "from the start of the log"), polling the log for newly
// committed records until the client disconnects.
func (g *Gateway) tailEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("events websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	since := new(big.Int)
	if raw := r.URL.Query().Get("since"); raw != "" {
		if _, ok := since.SetString(raw, 10); !ok {
			since.SetInt64(0)
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			records, err := g.events.List(0)
			if err != nil {
				logrus.Warnf("events tail: list: %v", err)
				return
			}
			for _, rec := range records {
				if rec.ID.V.Cmp(since) <= 0 {
					continue
				}
				frame := eventFrame{ID: rec.ID.String(), Info: rec.Info}
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
				since = rec.ID.V
			}
		}
	}
}
