package cache

import "d2sync/entity"

// CorpseRange is the distance from the player within which a walked corpse
// supersedes the cached one.
const CorpseRange = 40

// Corpses remembers player corpses by composite key so they stay visible
// after the game drops them from its tables.
type Corpses struct {
	byHash map[string]*entity.Player
	order  []string
}

func NewCorpses() *Corpses {
	return &Corpses{byHash: make(map[string]*entity.Player)}
}

// Update merges this tick's walked corpses and returns the walked corpses
// followed by the remembered ones. A remembered corpse is forgotten when a
// walked corpse with the same key lies within CorpseRange of the player.
func (c *Corpses) Update(walked []*entity.Player, player *entity.Player) []*entity.Player {
	list := make([]*entity.Player, 0, len(walked)+len(c.order))
	seen := make(map[*entity.Player]struct{}, len(walked))
	for _, p := range walked {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		list = append(list, p)
	}
	for _, key := range c.order {
		p := c.byHash[key]
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		list = append(list, p)
	}

	for _, p := range walked {
		key := p.HashString()
		if _, ok := c.byHash[key]; !ok {
			c.byHash[key] = p
			c.order = append(c.order, key)
			continue
		}
		if player != nil && p.DistanceTo(player) <= CorpseRange {
			c.remove(key)
		}
	}
	return list
}

// Has reports whether a corpse is remembered at key.
func (c *Corpses) Has(key string) bool {
	_, ok := c.byHash[key]
	return ok
}

func (c *Corpses) Len() int { return len(c.byHash) }

func (c *Corpses) Clear() {
	c.byHash = make(map[string]*entity.Player)
	c.order = nil
}

func (c *Corpses) remove(key string) {
	delete(c.byHash, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
