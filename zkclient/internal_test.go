package zkclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/jacentio/arbor/tree"
)

type createCall struct {
	path  string
	data  []byte
	flags int32
	acl   []zk.ACL
}

// fakeConn records calls and returns err from every primitive.
type fakeConn struct {
	err      error
	children []string
	data     []byte

	paths    []string
	creates  []createCall
	versions []int32
	closes   int
}

func (f *fakeConn) Exists(path string) (bool, *zk.Stat, error) {
	f.paths = append(f.paths, path)
	return f.err == nil, &zk.Stat{}, f.err
}

func (f *fakeConn) Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error) {
	f.paths = append(f.paths, path)
	f.creates = append(f.creates, createCall{path, data, flags, acl})
	return path, f.err
}

func (f *fakeConn) Delete(path string, version int32) error {
	f.paths = append(f.paths, path)
	f.versions = append(f.versions, version)
	return f.err
}

func (f *fakeConn) Children(path string) ([]string, *zk.Stat, error) {
	f.paths = append(f.paths, path)
	return f.children, &zk.Stat{}, f.err
}

func (f *fakeConn) Get(path string) ([]byte, *zk.Stat, error) {
	f.paths = append(f.paths, path)
	return f.data, &zk.Stat{}, f.err
}

func (f *fakeConn) Close() {
	f.closes++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want tree.Kind
	}{
		{"no node", zk.ErrNoNode, tree.KindNoNode},
		{"node exists", zk.ErrNodeExists, tree.KindNodeExists},
		{"not empty", zk.ErrNotEmpty, tree.KindNotEmpty},
		{"invalid path", zk.ErrInvalidPath, tree.KindInvalid},
		{"bad arguments", zk.ErrBadArguments, tree.KindInvalid},
		{"connection closed", zk.ErrConnectionClosed, tree.KindConnectivity},
		{"session expired", zk.ErrSessionExpired, tree.KindConnectivity},
		{"no server", zk.ErrNoServer, tree.KindConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(&fakeConn{err: tt.err}, "", testLogger())
			_, err := c.Exists(context.Background(), "/a")
			if got := tree.KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestMapError_ClosingAfterClose(t *testing.T) {
	c := newClient(&fakeConn{}, "", testLogger())
	_ = c.Close()

	if err := c.mapError("/a", zk.ErrClosing); !errors.Is(err, tree.ErrClosed) {
		t.Errorf("mapError(ErrClosing) after Close = %v, want ErrClosed", err)
	}
}

func TestChroot(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, "/apps/billing", testLogger())
	ctx := context.Background()

	_, _ = c.Exists(ctx, tree.Root)
	_, _ = c.Children(ctx, "/etc")
	_ = c.Create(ctx, "/etc/svc", nil)

	want := []string{"/apps/billing", "/apps/billing/etc", "/apps/billing/etc/svc"}
	if !reflect.DeepEqual(fc.paths, want) {
		t.Errorf("paths = %v, want %v", fc.paths, want)
	}
}

func TestCreate_PersistentOpenACL(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, "", testLogger())

	if err := c.Create(context.Background(), "/a", []byte("v")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(fc.creates) != 1 {
		t.Fatalf("creates = %d", len(fc.creates))
	}
	call := fc.creates[0]
	if call.flags != 0 {
		t.Errorf("flags = %d, want persistent", call.flags)
	}
	if !reflect.DeepEqual(call.acl, zk.WorldACL(zk.PermAll)) {
		t.Errorf("acl = %v, want world:anyone all", call.acl)
	}
	if string(call.data) != "v" {
		t.Errorf("data = %q", call.data)
	}
}

func TestDelete_AnyVersion(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, "", testLogger())

	if err := c.Delete(context.Background(), "/a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !reflect.DeepEqual(fc.versions, []int32{-1}) {
		t.Errorf("versions = %v, want [-1]", fc.versions)
	}
}

func TestDataAndChildren(t *testing.T) {
	fc := &fakeConn{children: []string{"a", "b"}, data: []byte("payload")}
	c := newClient(fc, "", testLogger())
	ctx := context.Background()

	children, err := c.Children(ctx, "/p")
	if err != nil || !reflect.DeepEqual(children, []string{"a", "b"}) {
		t.Errorf("Children = (%v, %v)", children, err)
	}
	data, err := c.Data(ctx, "/p/a")
	if err != nil || string(data) != "payload" {
		t.Errorf("Data = (%q, %v)", data, err)
	}
}

func TestClose(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, "", testLogger())

	_ = c.Close()
	_ = c.Close()
	if fc.closes != 1 {
		t.Errorf("conn closed %d times, want 1", fc.closes)
	}

	if _, err := c.Exists(context.Background(), "/a"); !errors.Is(err, tree.ErrClosed) {
		t.Errorf("Exists after Close = %v", err)
	}
	if len(fc.paths) != 0 {
		t.Errorf("calls reached the connection after Close: %v", fc.paths)
	}
}

func TestCanceledContext(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, "", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Create(ctx, "/a", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Create with canceled context = %v", err)
	}
	if len(fc.creates) != 0 {
		t.Error("create reached the connection")
	}
}

func TestParseConnectString(t *testing.T) {
	tests := []struct {
		in      string
		servers []string
		chroot  string
	}{
		{"zk1:2181", []string{"zk1:2181"}, ""},
		{"zk1:2181,zk2:2181", []string{"zk1:2181", "zk2:2181"}, ""},
		{" zk1:2181 , zk2:2181 ", []string{"zk1:2181", "zk2:2181"}, ""},
		{"zk1:2181,zk2:2181/apps/billing", []string{"zk1:2181", "zk2:2181"}, "/apps/billing"},
		{"zk1:2181/apps/", []string{"zk1:2181"}, "/apps"},
		{"", []string{"127.0.0.1:2181"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := ParseConnectString(tt.in)
			if !reflect.DeepEqual(cfg.Servers, tt.servers) {
				t.Errorf("Servers = %v, want %v", cfg.Servers, tt.servers)
			}
			if cfg.Chroot != tt.chroot {
				t.Errorf("Chroot = %q, want %q", cfg.Chroot, tt.chroot)
			}
			if cfg.SessionTimeout != DefaultSessionTimeout || cfg.ConnectTimeout != DefaultConnectTimeout {
				t.Errorf("timeouts = %s/%s", cfg.SessionTimeout, cfg.ConnectTimeout)
			}
		})
	}
}

func TestDial_Timeout(t *testing.T) {
	d := NewDialer(Config{
		Servers:        []string{"127.0.0.1:1"},
		ConnectTimeout: 200 * time.Millisecond,
	}, testLogger())

	start := time.Now()
	session, err := d.Dial(context.Background())
	if session != nil {
		_ = session.Close()
		t.Fatal("Dial returned a session for an unreachable ensemble")
	}
	if !errors.Is(err, tree.ErrTimeout) {
		t.Errorf("Dial error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Dial took %s", elapsed)
	}
}

var _ tree.Session = (*Client)(nil)
