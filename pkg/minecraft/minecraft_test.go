package minecraft_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"sub_trigger_bot/pkg/minecraft"

	"github.com/pkg/errors"
)

// Scripted protocol server: replies are looked up by command name.
type fakeServer struct {
	ln      net.Listener
	mx      sync.Mutex
	replies map[string]string
	got     []string
	conns   []net.Conn
}

func newFakeServer(t *testing.T, replies map[string]string) *fakeServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen, got error %v", err)
	}

	s := &fakeServer{ln: ln, replies: replies}
	go s.serve()

	return s
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	s.mx.Lock()
	s.conns = append(s.conns, conn)
	s.mx.Unlock()

	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		s.mx.Lock()
		s.got = append(s.got, line)
		cmd := line[:strings.IndexByte(line, '(')]
		reply, ok := s.replies[cmd]
		s.mx.Unlock()

		if ok {
			if _, err := conn.Write([]byte(reply + "\n")); err != nil {
				return
			}
		}
	}
}

// shutdown stops accepting and drops every open connection.
func (s *fakeServer) shutdown() {
	s.ln.Close()

	s.mx.Lock()
	defer s.mx.Unlock()

	for _, conn := range s.conns {
		conn.Close()
	}
}

func (s *fakeServer) commands() []string {
	s.mx.Lock()
	defer s.mx.Unlock()

	return append([]string(nil), s.got...)
}

func (s *fakeServer) waitCommands(t *testing.T, n int) []string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := s.commands(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d commands, got %v", n, s.commands())
	return nil
}

func TestPlayerPositions(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"world.getPlayerEntityIds": "1|7",
		"entity.getTile":           "10,64,-3",
	})
	defer srv.ln.Close()

	c := minecraft.NewClient(srv.ln.Addr().String())
	defer c.Close()

	ctx := context.Background()

	if !c.Ready(ctx) {
		t.Fatalf("want client ready")
	}

	ids, err := c.PlayerEntityIDs(ctx)
	if err != nil {
		t.Fatalf("failed to get player ids, got error %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 7 {
		t.Errorf("unexpected ids %v", ids)
	}

	pos, err := c.TilePos(ctx, 7)
	if err != nil {
		t.Fatalf("failed to get tile, got error %v", err)
	}
	if want := (minecraft.Vec3{X: 10, Y: 64, Z: -3}); pos != want {
		t.Errorf("want %v, got %v", want, pos)
	}

	got := srv.commands()
	if got[len(got)-1] != "entity.getTile(7)" {
		t.Errorf("unexpected command %v", got)
	}
}

func TestSetBlockAndSpawn(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"world.spawnEntity": "101",
	})
	defer srv.ln.Close()

	c := minecraft.NewClient(srv.ln.Addr().String())
	defer c.Close()

	ctx := context.Background()
	pos := minecraft.Vec3{X: 1, Y: 2, Z: 3}

	if err := c.SpawnEntity(ctx, pos, minecraft.EntityPrimedTNT); err != nil {
		t.Fatalf("failed to spawn, got error %v", err)
	}
	if err := c.SetBlock(ctx, pos.Add(0, 5, 0), minecraft.BlockAnvil); err != nil {
		t.Fatalf("failed to set block, got error %v", err)
	}

	got := srv.waitCommands(t, 2)
	want := []string{"world.spawnEntity(1,2,3,20)", "world.setBlock(1,7,3,145)"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d, want %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFailReply(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"entity.getTile": "Fail",
	})
	defer srv.ln.Close()

	c := minecraft.NewClient(srv.ln.Addr().String())
	defer c.Close()

	if _, err := c.TilePos(context.Background(), 3); !errors.Is(err, minecraft.ErrFail) {
		t.Errorf("want ErrFail, got %v", err)
	}
}

func TestNoPlayers(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"world.getPlayerEntityIds": "",
	})
	defer srv.ln.Close()

	c := minecraft.NewClient(srv.ln.Addr().String())
	defer c.Close()

	ids, err := c.PlayerEntityIDs(context.Background())
	if err != nil || len(ids) != 0 {
		t.Errorf("want no players, got %v, error %v", ids, err)
	}
}

func TestUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen, got error %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := minecraft.NewClient(addr)
	if c.Ready(context.Background()) {
		t.Errorf("want unreachable server not ready")
	}
	if _, err := c.PlayerEntityIDs(context.Background()); err == nil {
		t.Errorf("want error from unreachable server")
	}
}

func TestReadyAfterServerGone(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"world.getPlayerEntityIds": "1",
	})

	c := minecraft.NewClient(srv.ln.Addr().String())
	defer c.Close()

	ctx := context.Background()

	if !c.Ready(ctx) {
		t.Fatalf("want client ready")
	}

	srv.shutdown()

	if c.Ready(ctx) {
		t.Errorf("want client not ready after server went away")
	}
	if _, err := c.PlayerEntityIDs(ctx); err == nil {
		t.Errorf("want error after server went away")
	}
}

func TestReadyRedialsDroppedConnection(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"world.getPlayerEntityIds": "1",
	})
	defer srv.ln.Close()

	c := minecraft.NewClient(srv.ln.Addr().String())
	defer c.Close()

	ctx := context.Background()

	if !c.Ready(ctx) {
		t.Fatalf("want client ready")
	}

	// drop the cached connection while the listener keeps accepting
	srv.mx.Lock()
	for _, conn := range srv.conns {
		conn.Close()
	}
	srv.mx.Unlock()

	if !c.Ready(ctx) {
		t.Errorf("want client ready after redial")
	}
}

func TestParseVec3(t *testing.T) {
	cases := map[string]minecraft.Vec3{
		"1,2,3":          {1, 2, 3},
		" -4, 70 ,12 ":   {-4, 70, 12},
		"1.0,64.0,-2.0":  {1, 64, -2},
	}
	for line, want := range cases {
		if got, err := minecraft.ParseVec3(line); err != nil || got != want {
			t.Errorf("ParseVec3(%q) = %v, %v; want %v", line, got, err, want)
		}
	}

	for _, line := range []string{"", "1,2", "a,b,c"} {
		if _, err := minecraft.ParseVec3(line); err == nil {
			t.Errorf("ParseVec3(%q) want error", line)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := minecraft.Format("world.getPlayerEntityIds"); got != "world.getPlayerEntityIds()\n" {
		t.Errorf("unexpected line %q", got)
	}
	if got := minecraft.Format("world.setBlock", 1, -2, 3, 145); got != "world.setBlock(1,-2,3,145)\n" {
		t.Errorf("unexpected line %q", got)
	}
}
