package apps

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// UsageRecord is the persisted launch history of one application.
type UsageRecord struct {
	LaunchCount    int       `json:"launch_count"`
	LastLaunched   time.Time `json:"last_launched"`
	FirstLaunched  time.Time `json:"first_launched"`
	RecentLaunches []int64   `json:"recent_launches"`
}

// RecentsTracker records launches and ranks applications by frecency.
type RecentsTracker struct {
	records          map[string]*UsageRecord
	mu               sync.RWMutex
	file             string
	maxRecentEntries int
	halfLife         time.Duration
	now              func() time.Time
}

// NewRecentsTracker loads the history stored at file.
func NewRecentsTracker(file string) (*RecentsTracker, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("failed to create recents directory: %w", err)
	}

	tracker := &RecentsTracker{
		records:          make(map[string]*UsageRecord),
		file:             file,
		maxRecentEntries: 10,
		halfLife:         7 * 24 * time.Hour,
		now:              time.Now,
	}

	if err := tracker.Reload(); err != nil {
		log.Warnf("failed to load recents: %v", err)
	}
	return tracker, nil
}

// Record notes a launch of name and persists the history.
func (r *RecentsTracker) Record(name string) {
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec, ok := r.records[name]
	if !ok {
		rec = &UsageRecord{FirstLaunched: now, RecentLaunches: []int64{}}
		r.records[name] = rec
	}

	rec.LaunchCount++
	rec.LastLaunched = now
	rec.RecentLaunches = append(rec.RecentLaunches, now.Unix())
	if len(rec.RecentLaunches) > r.maxRecentEntries {
		rec.RecentLaunches = rec.RecentLaunches[1:]
	}

	if err := r.save(); err != nil {
		log.Warnf("failed to save recents: %v", err)
	}
	log.Debugf("recorded launch of %q: count=%d", name, rec.LaunchCount)
}

// Score returns the frecency of name, 0 when it was never launched.
func (r *RecentsTracker) Score(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return 0
	}
	return r.score(rec, r.now())
}

func (r *RecentsTracker) score(rec *UsageRecord, now time.Time) float64 {
	frequency := float64(rec.LaunchCount)
	recency := r.recencyScore(rec.LastLaunched, now)
	trend := trendScore(rec.RecentLaunches)
	return frequency*0.4 + recency*0.4 + trend*0.2
}

func (r *RecentsTracker) recencyScore(last, now time.Time) float64 {
	halfLives := float64(now.Sub(last)) / float64(r.halfLife)
	if halfLives < 0 {
		halfLives = 0
	}
	return 100 * math.Pow(0.5, halfLives)
}

func trendScore(launches []int64) float64 {
	if len(launches) < 2 {
		return 0
	}
	total := launches[len(launches)-1] - launches[0]
	if total <= 0 {
		return 0
	}

	avg := float64(total) / float64(len(launches)-1)
	perDay := 24 * 3600 / avg
	if perDay > 10 {
		perDay = 10
	}
	return perDay / 10 * 100
}

// Recent returns up to limit names ordered by descending frecency. A limit of
// zero or less returns all of them.
func (r *RecentsTracker) Recent(limit int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	type scored struct {
		name  string
		score float64
	}
	scores := make([]scored, 0, len(r.records))
	for name, rec := range r.records {
		scores = append(scores, scored{name, r.score(rec, now)})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].name < scores[j].name
	})

	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	names := make([]string, len(scores))
	for i, s := range scores {
		names[i] = s.name
	}
	return names
}

// Usage returns a copy of the history of name, or nil.
func (r *RecentsTracker) Usage(name string) *UsageRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return nil
	}
	cp := *rec
	cp.RecentLaunches = append([]int64(nil), rec.RecentLaunches...)
	return &cp
}

// Reload re-reads the history file. A missing file means no history.
func (r *RecentsTracker) Reload() error {
	data, err := os.ReadFile(r.file)
	if err != nil {
		if os.IsNotExist(err) {
			r.mu.Lock()
			r.records = make(map[string]*UsageRecord)
			r.mu.Unlock()
			return nil
		}
		return err
	}

	var records map[string]*UsageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal recents: %w", err)
	}
	if records == nil {
		records = make(map[string]*UsageRecord)
	}
	for name, rec := range records {
		if rec == nil {
			log.Warnf("dropping empty usage record for %s", name)
			delete(records, name)
		}
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	log.Debugf("loaded %d usage records", len(records))
	return nil
}

func (r *RecentsTracker) save() error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recents: %w", err)
	}

	tmp := r.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write recents: %w", err)
	}
	return os.Rename(tmp, r.file)
}

// Remove forgets name.
func (r *RecentsTracker) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, name)
	if err := r.save(); err != nil {
		log.Warnf("failed to save recents: %v", err)
	}
}

// Clear forgets every application.
func (r *RecentsTracker) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]*UsageRecord)
	if err := r.save(); err != nil {
		log.Warnf("failed to save recents: %v", err)
	}
}
