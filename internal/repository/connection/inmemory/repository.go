package inmemory

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/sharetube/jamroom/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type set map[string]struct{}

// repo keeps live connections and their named groups. It is owned by a single goroutine and does no locking.
type repo struct {
	conns       map[string]connection.Conn
	groups      map[string]set
	memberships map[string]set
	logger      *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:       make(map[string]connection.Conn),
		groups:      make(map[string]set),
		memberships: make(map[string]set),
		logger:      logger,
	}
}

func (r *repo) Add(conn connection.Conn) error {
	funcName := "connection.inmemory.Add"
	r.logger.Debug(funcName, "conn_id", conn.ID())

	if _, ok := r.conns[conn.ID()]; ok {
		return connection.ErrAlreadyExists
	}

	r.conns[conn.ID()] = conn
	r.memberships[conn.ID()] = make(set)

	return nil
}

// Remove drops the connection and ungroups it everywhere.
func (r *repo) Remove(connId string) (connection.Conn, error) {
	funcName := "connection.inmemory.Remove"
	r.logger.Debug(funcName, "conn_id", connId)

	conn, ok := r.conns[connId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	r.LeaveAll(connId)
	delete(r.conns, connId)
	delete(r.memberships, connId)

	return conn, nil
}

func (r *repo) Get(connId string) (connection.Conn, error) {
	conn, ok := r.conns[connId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

// Conns returns every registered connection.
func (r *repo) Conns() []connection.Conn {
	conns := maps.Values(r.conns)
	slices.SortFunc(conns, func(a, b connection.Conn) int {
		return strings.Compare(a.ID(), b.ID())
	})

	return conns
}

func (r *repo) Join(connId, group string) error {
	funcName := "connection.inmemory.Join"
	r.logger.Debug(funcName, "conn_id", connId, "group", group)

	memberships, ok := r.memberships[connId]
	if !ok {
		return connection.ErrNotFound
	}

	members, ok := r.groups[group]
	if !ok {
		members = make(set)
		r.groups[group] = members
	}

	members[connId] = struct{}{}
	memberships[group] = struct{}{}

	return nil
}

// Leave reports whether the connection was grouped under group. Empty groups are dropped.
func (r *repo) Leave(connId, group string) bool {
	funcName := "connection.inmemory.Leave"
	r.logger.Debug(funcName, "conn_id", connId, "group", group)

	members, ok := r.groups[group]
	if !ok {
		return false
	}

	if _, ok := members[connId]; !ok {
		return false
	}

	delete(members, connId)
	if len(members) == 0 {
		delete(r.groups, group)
	}

	if memberships, ok := r.memberships[connId]; ok {
		delete(memberships, group)
	}

	return true
}

func (r *repo) LeaveAll(connId string) []string {
	groups := r.GroupsOf(connId)
	for _, group := range groups {
		r.Leave(connId, group)
	}

	return groups
}

// Members returns the ids grouped under group in a stable order.
func (r *repo) Members(group string) []string {
	ids := maps.Keys(r.groups[group])
	slices.Sort(ids)

	return ids
}

func (r *repo) GroupsOf(connId string) []string {
	groups := maps.Keys(r.memberships[connId])
	slices.Sort(groups)

	return groups
}

func (r *repo) HasGroup(group string) bool {
	_, ok := r.groups[group]
	return ok
}

func (r *repo) IsMember(connId, group string) bool {
	_, ok := r.groups[group][connId]
	return ok
}

func (r *repo) Size(group string) int {
	return len(r.groups[group])
}

func (r *repo) Stats() (groups, conns int) {
	return len(r.groups), len(r.conns)
}
