package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

// LiveFeed fans each decoded record out to websocket subscribers. New
// subscribers immediately get the last record so a dashboard paints
// without waiting for the next frame. Slow subscribers drop records
// rather than stalling the publisher.
type LiveFeed struct {
	mu       sync.Mutex
	subs     map[int]chan LastRecord
	nextID   int
	last     LastRecord
	haveLast bool
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{subs: make(map[int]chan LastRecord)}
}

func (f *LiveFeed) Publish(nowUTC time.Time, rec telemetry.Record, link telemetry.Link) {
	if f == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	lr := LastRecord{
		ReceivedUTC: nowUTC.UTC().Format(time.RFC3339Nano),
		Record:      rec,
		Link:        link,
		CSV:         telemetry.FormatCSV(rec, link),
	}

	f.mu.Lock()
	f.last = lr
	f.haveLast = true
	for _, ch := range f.subs {
		select {
		case ch <- lr:
		default:
			// Subscriber is behind; it keeps the stream, loses this record.
		}
	}
	f.mu.Unlock()
}

func (f *LiveFeed) subscribe() (int, <-chan LastRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan LastRecord, 8)
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	if f.haveLast {
		ch <- f.last
	}
	return id, ch
}

func (f *LiveFeed) unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

var liveUpgrader = websocket.Upgrader{
	// The status UI is served off the same listener; nothing here is
	// origin-sensitive.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (f *LiveFeed) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := liveUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, ch := f.subscribe()
		defer f.unsubscribe(id)

		// Drain client frames so pings and close get processed.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case lr, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(lr); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Printf("web: live subscriber dropped: %v", err)
					}
					return
				}
			}
		}
	})
}
