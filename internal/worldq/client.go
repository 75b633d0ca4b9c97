package worldq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/telemetry"
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultRequestTimeout = 2 * time.Second
	heartbeatInterval     = 2 * time.Second
	writeWait             = 10 * time.Second
)

// ClientConfig tunes the websocket world connection.
type ClientConfig struct {
	URL            string
	AgentID        string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	Logger         telemetry.Logger
}

// request is the wire shape sent to the world server. Optional fields are
// populated per query type.
type request struct {
	Seq    uint64     `json:"seq"`
	Type   string     `json:"type"`
	Agent  string     `json:"agent,omitempty"`
	Pos    *geom.Vec3 `json:"pos,omitempty"`
	Radius int        `json:"radius,omitempty"`
	Name   string     `json:"name,omitempty"`
	SentAt int64      `json:"sentAt,omitempty"`
}

// response mirrors the server reply with only the fields used by each query
// populated.
type response struct {
	Seq       uint64         `json:"seq"`
	OK        bool           `json:"ok"`
	Error     string         `json:"error,omitempty"`
	Pos       *geom.Vec3     `json:"pos,omitempty"`
	Block     *Block         `json:"block,omitempty"`
	Biome     string         `json:"biome,omitempty"`
	Histogram map[string]int `json:"histogram,omitempty"`
	Entities  []Entity       `json:"entities,omitempty"`
	Harvest   bool           `json:"harvest,omitempty"`
}

// Client implements World over a websocket connection to a voxel world
// server. Requests carry sequence numbers; the read pump matches replies to
// waiting callers. Unanswered or timed-out queries degrade to "unknown"
// rather than surfacing errors, matching the scanning failure policy.
type Client struct {
	cfg    ClientConfig
	logger telemetry.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan response
	nextSeq   uint64

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the world server and starts the read pump.
func Dial(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("worldq: missing server url")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.Dial(cfg.URL, nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("worldq: dial %s: %w", cfg.URL, err)
	}
	client := &Client{
		cfg:     cfg,
		logger:  cfg.Logger,
		conn:    conn,
		pending: make(map[uint64]chan response),
		done:    make(chan struct{}),
	}
	go client.readPump()
	go client.heartbeat()
	return client, nil
}

// Close tears down the connection and fails outstanding requests.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		err = c.conn.Close()
		c.writeMu.Unlock()
		c.failPending()
	})
	return err
}

func (c *Client) readPump() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if c.logger != nil {
					c.logger.Printf("world connection lost: %v", err)
				}
			}
			c.failPending()
			return
		}
		var resp response
		if err := json.Unmarshal(payload, &resp); err != nil {
			if c.logger != nil {
				c.logger.Printf("discarding malformed world reply: %v", err)
			}
			continue
		}
		c.dispatch(resp)
	}
}

func (c *Client) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(resp response) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.Seq]
	if ok {
		delete(c.pending, resp.Seq)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- resp
	}
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	c.pendingMu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
}

// call issues one request and waits for its reply. A false result means the
// world could not answer, for any reason.
func (c *Client) call(req request) (response, bool) {
	if c == nil || c.conn == nil {
		return response{}, false
	}
	select {
	case <-c.done:
		return response{}, false
	default:
	}

	ch := make(chan response, 1)
	c.pendingMu.Lock()
	c.nextSeq++
	req.Seq = c.nextSeq
	c.pending[req.Seq] = ch
	c.pendingMu.Unlock()

	req.Agent = c.cfg.AgentID
	req.SentAt = time.Now().UnixMilli()

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, req.Seq)
		c.pendingMu.Unlock()
		return response{}, false
	}

	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok || !resp.OK {
			return response{}, false
		}
		return resp, true
	case <-timer.C:
		c.pendingMu.Lock()
		delete(c.pending, req.Seq)
		c.pendingMu.Unlock()
		return response{}, false
	case <-c.done:
		return response{}, false
	}
}

// Position implements World.
func (c *Client) Position() (geom.Vec3, bool) {
	resp, ok := c.call(request{Type: "position"})
	if !ok || resp.Pos == nil {
		return geom.Vec3{}, false
	}
	return *resp.Pos, true
}

// BlockAt implements World.
func (c *Client) BlockAt(pos geom.Vec3) (*Block, bool) {
	floored := pos.Floored()
	resp, ok := c.call(request{Type: "block_at", Pos: &floored})
	if !ok || resp.Block == nil {
		return nil, false
	}
	return resp.Block, true
}

// BiomeAt implements World.
func (c *Client) BiomeAt(pos geom.Vec3) string {
	floored := pos.Floored()
	resp, ok := c.call(request{Type: "biome_at", Pos: &floored})
	if !ok {
		return ""
	}
	return resp.Biome
}

// BlockHistogram implements World.
func (c *Client) BlockHistogram(radius int) map[string]int {
	resp, ok := c.call(request{Type: "block_histogram", Radius: radius})
	if !ok {
		return nil
	}
	return resp.Histogram
}

// NearbyEntities implements World.
func (c *Client) NearbyEntities(radius int) []Entity {
	resp, ok := c.call(request{Type: "nearby_entities", Radius: radius})
	if !ok {
		return nil
	}
	return resp.Entities
}

// FindNearestBlock implements World.
func (c *Client) FindNearestBlock(name string, radius int) (*Block, bool) {
	resp, ok := c.call(request{Type: "nearest_block", Name: name, Radius: radius})
	if !ok || resp.Block == nil {
		return nil, false
	}
	return resp.Block, true
}

// Move asks the world server to step the agent to the given position. Unlike
// the query methods it surfaces an error, since movement failures must abort
// navigation rather than degrade silently.
func (c *Client) Move(pos geom.Vec3) error {
	if _, ok := c.call(request{Type: "move", Pos: &pos}); !ok {
		return fmt.Errorf("worldq: move to %s rejected", pos.Key())
	}
	return nil
}

// CanHarvest implements World.
func (c *Client) CanHarvest(block *Block) bool {
	if block == nil {
		return false
	}
	resp, ok := c.call(request{Type: "can_harvest", Name: block.Name, Pos: &block.Position})
	if !ok {
		return false
	}
	return resp.Harvest
}

var _ World = (*Client)(nil)
var _ World = (*Static)(nil)
