package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 1 * time.Second
	maxMessageSize = 8192

	// Updates arriving faster than this are coalesced into the latest one.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 200
	// A peer silent for this long, pongs included, is considered gone.
	pongWait = pingResolution * 4

	closeGracePeriod = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{}

// A client publishes updates unidirectionally to a web client via websocket.
// Updates must be idempotent: only the latest is needed to describe the client state.
// All writes happen on the publish goroutine; the read goroutine only drains control frames.
type client[T any] struct {
	updates <-chan T
	conn    *websocket.Conn
	rootCtx context.Context
}

// NewClient upgrades the request to a websocket and returns a publisher for it.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*client[T], error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)

	return &client[T]{
		updates: updates,
		conn:    conn,
		rootCtx: r.Context(),
	}, nil
}

// Sync publishes until the client disconnects, the updates close, or a write fails.
// Returns nil on a normal disconnect.
func (cli *client[T]) Sync() error {
	ctx, cancel := context.WithCancel(cli.rootCtx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.publish(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		// Expire the pending read so readMessages observes the teardown.
		_ = cli.conn.SetReadDeadline(time.Now())
		return nil
	})

	err := group.Wait()
	if isClosure(err) {
		return nil
	}
	return err
}

// Close sends a close frame and tears down the websocket once Sync has returned.
func (cli *client[T]) Close() {
	_ = cli.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	time.Sleep(closeGracePeriod)
	cli.conn.Close()
}

// readMessages drains the client, which keeps pong and close frames flowing. Each pong
// extends the read deadline, so a peer that stops answering pings times the read out.
func (cli *client[T]) readMessages(ctx context.Context) error {
	_ = cli.conn.SetReadDeadline(time.Now().Add(pongWait))
	cli.conn.SetPongHandler(func(string) error {
		return cli.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cli.conn.ReadMessage(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// publish writes updates at most once per pubResolution, holding back the latest
// update received too soon until the next ping tick, and pings the client.
func (cli *client[T]) publish(ctx context.Context) error {
	var (
		lastSync time.Time
		pending  *T
	)
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if ctx.Err() != nil {
				return nil
			}
			if err := cli.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			if pending != nil && time.Since(lastSync) >= pubResolution {
				if err := cli.write(*pending); err != nil {
					return err
				}
				pending, lastSync = nil, time.Now()
			}
		case update, ok := <-cli.updates:
			if !ok {
				if pending != nil {
					return cli.write(*pending)
				}
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				pending = &update
				break
			}
			if err := cli.write(update); err != nil {
				return err
			}
			pending, lastSync = nil, time.Now()
		}
	}
}

func (cli *client[T]) write(update T) error {
	if err := cli.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	if err := cli.conn.WriteJSON(update); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
