// Package sse pushes library, note and screenshot events to browsers over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	ImageCreated   = "image.created"
	ImageUpdated   = "image.updated"
	ImageDeleted   = "image.deleted"
	FoldersUpdated = "folders.updated"
	NoteCreated    = "note.created"
	NoteUpdated    = "note.updated"
	NoteDeleted    = "note.deleted"
	ScanCompleted  = "scan.completed"
	PendingUpdated = "pending.updated"
	Notification   = "notification"
)

// historySize is how many frames are kept for Last-Event-ID replay.
const historySize = 128

// Event is one SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is an encoded event with its sequence number.
type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch    chan []byte
	after uint64
}

type change struct {
	prefix string
	kind   string
	data   map[string]string
}

// Broker fans events out to connected clients. The loop goroutine owns the
// client set, the replay history and the folders throttle; every public
// method talks to it over channels.
type Broker struct {
	foldersMin time.Duration
	keepAlive  time.Duration

	subs     chan subscription
	unsubs   chan chan []byte
	events   chan Event
	changes  chan change
	counts   chan chan int
	stop     chan struct{}
	done     chan struct{}
	isClosed atomic.Bool
}

// NewBroker creates a broker that emits folders.updated at most once per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		foldersMin: throttle,
		keepAlive:  25 * time.Second,
		subs:       make(chan subscription),
		unsubs:     make(chan chan []byte),
		events:     make(chan Event, 256),
		changes:    make(chan change, 256),
		counts:     make(chan chan int),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func encode(id uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, e.Type, payload)), nil
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := make(map[chan []byte]struct{})
	history := make([]frame, 0, historySize)
	var seq uint64
	var lastFolders time.Time

	deliver := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// client is not keeping up; it can resume with Last-Event-ID
		}
	}

	emit := func(e Event) {
		seq++
		raw, err := encode(seq, e)
		if err != nil {
			return
		}
		if len(history) == historySize {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, frame{id: seq, raw: raw})
		for ch := range clients {
			deliver(ch, raw)
		}
	}

	for {
		select {
		case <-b.stop:
			for ch := range clients {
				close(ch)
			}
			return

		case s := <-b.subs:
			clients[s.ch] = struct{}{}
			if s.after > 0 {
				for _, f := range history {
					if f.id > s.after {
						deliver(s.ch, f.raw)
					}
				}
			}

		case ch := <-b.unsubs:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.events:
			emit(e)

		case c := <-b.changes:
			typ, ok := eventType(c.prefix, c.kind)
			if !ok {
				continue
			}
			emit(Event{Type: typ, Data: c.data})
			if c.prefix != "image" {
				continue
			}
			if now := time.Now(); now.Sub(lastFolders) >= b.foldersMin {
				lastFolders = now
				emit(Event{Type: FoldersUpdated, Data: map[string]string{}})
			}

		case resp := <-b.counts:
			resp <- len(clients)
		}
	}
}

func eventType(prefix, kind string) (string, bool) {
	switch kind {
	case "created", "updated", "deleted":
		return prefix + "." + kind, true
	}
	return "", false
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.isClosed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.done
}

// Subscribe adds a client that only receives new events.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0)
}

// SubscribeFrom adds a client and first replays the retained events whose
// id is greater than lastID. Zero means no replay.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	ch := make(chan []byte, historySize)
	if b.isClosed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subs <- subscription{ch: ch, after: lastID}:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.isClosed.Load() {
		return
	}
	select {
	case b.unsubs <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.isClosed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.counts <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends an event to all clients.
func (b *Broker) Publish(event Event) {
	if b.isClosed.Load() {
		return
	}
	select {
	case b.events <- event:
	case <-b.done:
	}
}

// PublishImageEvent emits image.<kind> for an absolute file path, followed
// by a throttled folders.updated.
func (b *Broker) PublishImageEvent(kind, path string) {
	b.change(change{prefix: "image", kind: kind, data: map[string]string{"path": path}})
}

// PublishNoteEvent emits note.<kind> carrying the note id.
func (b *Broker) PublishNoteEvent(kind, id string) {
	b.change(change{prefix: "note", kind: kind, data: map[string]string{"id": id}})
}

func (b *Broker) change(c change) {
	if b.isClosed.Load() {
		return
	}
	select {
	case b.changes <- c:
	case <-b.done:
	}
}

// lastEventID reads the resume point from the Last-Event-ID header or,
// for clients that cannot set headers, the lastEventId query parameter.
func lastEventID(r *http.Request) uint64 {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("lastEventId")
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", 3000)
	flusher.Flush()

	ch := b.SubscribeFrom(lastEventID(r))
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
