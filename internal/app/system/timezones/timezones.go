// Package timezones holds the curated list of IANA zones an operator may pick as the
// attendance reference zone. The zone database is embedded so lookups do not depend
// on the host's zoneinfo.
package timezones

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

//go:embed timezonedata/timezones.json
var data embed.FS

// Zone is one selectable reference zone.
type Zone struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Region string `json:"region,omitempty"`
}

type catalog struct {
	list []Zone
	byID map[string]Zone
}

var loadCatalog = sync.OnceValues(func() (catalog, error) {
	raw, err := data.ReadFile("timezonedata/timezones.json")
	if err != nil {
		return catalog{}, err
	}
	var list []Zone
	if err := json.Unmarshal(raw, &list); err != nil {
		return catalog{}, fmt.Errorf("parse zone list: %w", err)
	}
	c := catalog{list: list, byID: make(map[string]Zone, len(list))}
	for _, z := range list {
		c.byID[z.ID] = z
	}
	return c, nil
})

// Load parses the embedded list. Call it at startup to fail fast.
func Load() error {
	_, err := loadCatalog()
	return err
}

// All returns the curated zones in file order.
func All() ([]Zone, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return c.list, nil
}

// Label returns the display label for id, or id when unknown.
func Label(id string) string {
	if c, err := loadCatalog(); err == nil {
		if z, ok := c.byID[id]; ok && z.Label != "" {
			return z.Label
		}
	}
	return id
}

// Valid reports whether id is in the curated list.
func Valid(id string) bool {
	c, err := loadCatalog()
	if err != nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

// Location loads a curated zone. Zones outside the list are rejected even when the
// runtime knows them.
func Location(id string) (*time.Location, error) {
	if !Valid(id) {
		return nil, fmt.Errorf("unsupported time zone %q", id)
	}
	return time.LoadLocation(id)
}
