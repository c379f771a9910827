package calendar

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// snapshot is the raw store output for one query. Events are derived from it
// per caller because editability depends on who is asking.
type snapshot struct {
	appointments []*model.Appointment
	blocked      []*model.BlockedSlot
	names        map[uuid.UUID]string
}

// Cache holds projection snapshots keyed by organization and query. Every
// invalidation bumps a generation counter; a fetch that started under an
// older generation is not stored.
type Cache struct {
	mu    sync.Mutex
	items *gocache.Cache
	gens  map[uuid.UUID]uint64
}

func NewCache(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		items: gocache.New(ttl, cleanupInterval),
		gens:  make(map[uuid.UUID]uint64),
	}
}

// Generation returns the current generation for an organization.
func (c *Cache) Generation(orgID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[orgID]
}

func (c *Cache) get(key string) (*snapshot, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*snapshot), true
}

// put stores snap unless the organization was invalidated since gen was read.
func (c *Cache) put(orgID uuid.UUID, gen uint64, key string, snap *snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[orgID] != gen {
		return false
	}
	c.items.SetDefault(key, snap)
	return true
}

// Flush drops every cached projection of the organization.
func (c *Cache) Flush(orgID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[orgID]++

	prefix := orgID.String() + "|"
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

func cacheKey(q model.AppointmentQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d", q.OrganizationID, q.Range.From.UnixNano(), q.Range.To.UnixNano())
	b.WriteString("|s=" + joinIDs(q.Filter.StaffIDs))
	b.WriteString("|v=" + joinIDs(q.Filter.ServiceIDs))

	locs := make([]string, len(q.Filter.Locations))
	for i, l := range q.Filter.Locations {
		locs[i] = l.String()
	}
	sort.Strings(locs)
	b.WriteString("|l=" + strings.Join(locs, ","))
	return b.String()
}

func joinIDs(ids []uuid.UUID) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
