package finance

import (
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"capmDashboard/internal/capm"
)

const chartCacheTTL = 60 * time.Second

type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
}

var (
	chartCache   = map[string]chartCacheEntry{}
	chartCacheMu sync.Mutex
)

func cacheGet(key string) ([]byte, bool) {
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()
	if entry, ok := chartCache[key]; ok {
		if time.Now().Before(entry.createdAt.Add(chartCacheTTL)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
		delete(chartCache, key)
	}
	return nil, false
}

// cacheSet stores img and drops every expired entry.
func cacheSet(key string, img []byte) {
	now := time.Now()
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()
	for k, e := range chartCache {
		if !now.Before(e.createdAt.Add(chartCacheTTL)) {
			delete(chartCache, k)
		}
	}
	chartCache[key] = chartCacheEntry{createdAt: now, image: img}
}

// tableKey fingerprints a table so identical renders within the TTL reuse the image.
func tableKey(title string, t capm.Table) string {
	h := fnv.New64a()
	fmt.Fprint(h, title, t.Columns)
	for _, d := range t.Dates {
		fmt.Fprint(h, d.Unix())
	}
	var b [8]byte
	for _, col := range t.Values {
		for _, v := range col {
			bits := math.Float64bits(v)
			for i := range b {
				b[i] = byte(bits >> (8 * i))
			}
			h.Write(b[:])
		}
	}
	return fmt.Sprintf("%s|%x", title, h.Sum64())
}
