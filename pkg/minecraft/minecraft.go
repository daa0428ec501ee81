// Package minecraft is a client for the Minecraft Pi scripting API,
// a line based text protocol served by RaspberryJuice and compatible plugins.
package minecraft

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultAddr        = "localhost:4711"
	DefaultDialTimeout = 5 * time.Second
	DefaultCallTimeout = 5 * time.Second

	// Entity type id of primed TNT.
	EntityPrimedTNT = 20
	// Block id of anvil.
	BlockAnvil = 145

	failReply = "Fail"
)

var (
	ErrFail          = errors.New("server replied Fail")
	ErrNotConnected  = errors.New("not connected")
	ErrUnexpectedRes = errors.New("unexpected response")
)

// Block coordinates.
type Vec3 struct {
	X, Y, Z int
}

func (v Vec3) String() string {
	return fmt.Sprintf("%d, %d, %d", v.X, v.Y, v.Z)
}

func (v Vec3) Add(dx, dy, dz int) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

// Client of a single server. Calls are serialized, the connection is dialed lazily
// and dropped after an I/O error, so the next call reconnects.
type Client struct {
	addr        string
	dialTimeout time.Duration
	dialer      net.Dialer

	mx   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
}

func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Client{
		addr:        addr,
		dialTimeout: DefaultDialTimeout,
	}
}

func (c *Client) Addr() string {
	return c.addr
}

// Dials the server unless already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	return c.connectLocked(ctx)
}

// Reports whether the server answers a round-trip. A cached connection that
// went stale is dropped and redialed once.
func (c *Client) Ready(ctx context.Context) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	const attempts = 2

	for i := 0; i < attempts; i++ {
		if err := c.connectLocked(ctx); err != nil {
			return false
		}

		// a Fail reply still proves the server is alive
		if _, err := c.callLocked(ctx, "world.getPlayerEntityIds", nil); err == nil || errors.Is(err, ErrFail) {
			return true
		}
		c.dropLocked()
	}

	return false
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to connect %s", c.addr)
	}

	c.conn = conn
	c.rd = bufio.NewReader(conn)

	return nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.rd = nil
}

func (c *Client) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.rd = nil

	return err
}

// Sends a command without waiting for a reply.
func (c *Client) send(ctx context.Context, cmd string, args ...any) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	return c.writeLocked(ctx, cmd, args)
}

// Sends a command and reads one reply line.
func (c *Client) call(ctx context.Context, cmd string, args ...any) (string, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	return c.callLocked(ctx, cmd, args)
}

func (c *Client) callLocked(ctx context.Context, cmd string, args []any) (string, error) {
	if err := c.writeLocked(ctx, cmd, args); err != nil {
		return "", err
	}

	line, err := c.rd.ReadString('\n')
	if err != nil {
		c.dropLocked()
		return "", errors.Wrapf(err, "failed to read reply to %s", cmd)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == failReply {
		return "", errors.WithMessagef(ErrFail, "%s", cmd)
	}

	return line, nil
}

func (c *Client) writeLocked(ctx context.Context, cmd string, args []any) error {
	if err := c.connectLocked(ctx); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultCallTimeout)
	}

	c.drainLocked()

	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropLocked()
		return err
	}

	if _, err := c.conn.Write([]byte(Format(cmd, args...))); err != nil {
		c.dropLocked()
		return errors.Wrapf(err, "failed to send %s", cmd)
	}

	return nil
}

// Discards replies left over from commands that were not waited for,
// e.g. a Fail to an earlier setBlock.
func (c *Client) drainLocked() {
	_ = c.conn.SetReadDeadline(time.Now())
	for {
		if _, err := c.rd.ReadString('\n'); err != nil {
			break
		}
	}
}

// Formats a protocol line, e.g. "world.setBlock(1,2,3,145)\n".
func Format(cmd string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf("%s(%s)\n", cmd, strings.Join(parts, ","))
}

// Returns entity ids of all connected players.
func (c *Client) PlayerEntityIDs(ctx context.Context) ([]int, error) {
	line, err := c.call(ctx, "world.getPlayerEntityIds")
	if err != nil {
		return nil, err
	}

	if line == "" {
		return nil, nil
	}

	fields := strings.Split(line, "|")
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		entityID, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.WithMessagef(ErrUnexpectedRes, "player ids %q", line)
		}
		ids = append(ids, entityID)
	}

	return ids, nil
}

// Returns the tile position of an entity.
func (c *Client) TilePos(ctx context.Context, entityID int) (Vec3, error) {
	line, err := c.call(ctx, "entity.getTile", entityID)
	if err != nil {
		return Vec3{}, err
	}

	return ParseVec3(line)
}

func (c *Client) SpawnEntity(ctx context.Context, pos Vec3, typeID int) error {
	_, err := c.call(ctx, "world.spawnEntity", pos.X, pos.Y, pos.Z, typeID)
	return err
}

func (c *Client) SetBlock(ctx context.Context, pos Vec3, blockID int) error {
	return c.send(ctx, "world.setBlock", pos.X, pos.Y, pos.Z, blockID)
}

// Parses "x,y,z" reply.
func ParseVec3(line string) (Vec3, error) {
	const (
		fieldsNum = 3
	)

	fields := strings.Split(line, ",")
	if len(fields) != fieldsNum {
		return Vec3{}, errors.WithMessagef(ErrUnexpectedRes, "position %q", line)
	}

	var coords [fieldsNum]int
	for i, f := range fields {
		f = strings.TrimSpace(f)
		v, err := strconv.Atoi(f)
		if err != nil {
			// getTile normally returns integers, tolerate float replies
			fv, ferr := strconv.ParseFloat(f, 64)
			if ferr != nil {
				return Vec3{}, errors.WithMessagef(ErrUnexpectedRes, "position %q", line)
			}
			v = int(fv)
		}
		coords[i] = v
	}

	return Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
