package oomadj

import (
	"context"
	"fmt"

	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/service/adjuster"
	"github.com/viant/oomadj/service/dao"
	"github.com/viant/oomadj/service/dao/store"
)

type connection struct {
	record.Connection
}

// registry is the arena holding every record. Processes are kept in LRU
// order, least recently used first. It implements adjuster.Graph and does no
// locking of its own.
type registry struct {
	processes   *store.Table[int, record.Process]
	uids        *store.Table[int, record.Uid]
	connections *store.Table[int, connection]
	byClient    map[int][]record.Connection
	byHost      map[int][]record.Connection
	lastConnID  int
}

func newRegistry() *registry {
	return &registry{
		processes:   store.NewTable[int, record.Process](func(p *record.Process) int { return p.ID }),
		uids:        store.NewTable[int, record.Uid](func(u *record.Uid) int { return u.UID }, store.WithZeroKey[int, record.Uid]()),
		connections: store.NewTable[int, connection](func(c *connection) int { return c.ID() }),
		byClient:    map[int][]record.Connection{},
		byHost:      map[int][]record.Connection{},
	}
}

func (r *registry) Process(id int) *record.Process {
	p, _ := r.processes.Get(id)
	return p
}

func (r *registry) Uid(uid int) *record.Uid {
	u, _ := r.uids.Get(uid)
	return u
}

func (r *registry) Connections(id int) []record.Connection {
	return r.byClient[id]
}

func (r *registry) ClientConnections(id int) []record.Connection {
	return r.byHost[id]
}

func (r *registry) lru() []*record.Process {
	return r.processes.Values()
}

func (r *registry) load(id int) (*record.Process, error) {
	p, err := r.processes.Load(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("unknown process %v: %w", id, err)
	}
	return p, nil
}

// add inserts p and attaches it to its uid, creating the uid record when
// p is its first process.
func (r *registry) add(p *record.Process) (*record.Uid, error) {
	if err := r.processes.Insert(context.Background(), p); err != nil {
		return nil, fmt.Errorf("failed to add process %v: %w", p.Name, err)
	}
	u, ok := r.uids.Get(p.UID)
	if !ok {
		u = record.NewUid(p.UID)
		_ = r.uids.Insert(context.Background(), u)
	}
	u.AddProcess(p)
	return u, nil
}

// remove detaches p from the arena and returns the connections it took part
// in. gone is true when p was the last process of its uid.
func (r *registry) remove(p *record.Process) (removed []record.Connection, u *record.Uid, gone bool) {
	_ = r.processes.Delete(context.Background(), p.ID)
	removed = append(removed, r.byClient[p.ID]...)
	removed = append(removed, r.byHost[p.ID]...)
	for _, conn := range removed {
		r.unlink(conn)
	}
	if u = r.Uid(p.UID); u != nil {
		u.RemoveProcess(p)
		if u.NumProcesses() == 0 {
			_ = r.uids.Delete(context.Background(), u.UID)
			gone = true
		}
	}
	return removed, u, gone
}

func (r *registry) nextConnectionID() int {
	r.lastConnID++
	return r.lastConnID
}

func (r *registry) link(conn record.Connection) error {
	if r.Process(conn.Client()) == nil {
		return fmt.Errorf("unknown client %v: %w", conn.Client(), dao.ErrNotFound)
	}
	if r.Process(conn.Host()) == nil {
		return fmt.Errorf("unknown host %v: %w", conn.Host(), dao.ErrNotFound)
	}
	if err := r.connections.Insert(context.Background(), &connection{Connection: conn}); err != nil {
		return fmt.Errorf("failed to add connection %v: %w", conn.ID(), err)
	}
	r.byClient[conn.Client()] = append(r.byClient[conn.Client()], conn)
	r.byHost[conn.Host()] = append(r.byHost[conn.Host()], conn)
	return nil
}

func (r *registry) unlink(conn record.Connection) {
	_ = r.connections.Delete(context.Background(), conn.ID())
	r.byClient[conn.Client()] = without(r.byClient[conn.Client()], conn.ID())
	if len(r.byClient[conn.Client()]) == 0 {
		delete(r.byClient, conn.Client())
	}
	r.byHost[conn.Host()] = without(r.byHost[conn.Host()], conn.ID())
	if len(r.byHost[conn.Host()]) == 0 {
		delete(r.byHost, conn.Host())
	}
}

func (r *registry) connection(id int) (record.Connection, error) {
	conn, err := r.connections.Load(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("unknown connection %v: %w", id, err)
	}
	return conn.Connection, nil
}

func without(connections []record.Connection, id int) []record.Connection {
	for i, conn := range connections {
		if conn.ID() == id {
			return append(connections[:i:i], connections[i+1:]...)
		}
	}
	return connections
}

var _ adjuster.Graph = (*registry)(nil)
