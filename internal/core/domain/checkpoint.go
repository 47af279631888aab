package domain

// Checkpoint records which corpus units a run has already processed,
// enabling resumable runs. The JSON field names match the on-disk
// checkpoint.json the pipeline has always written; "processedFiles"
// holds unit names of either variant.
type Checkpoint struct {
	// LastProcessedIndex is the corpus position of the most recently
	// processed unit. Informational; skipping is driven by ProcessedUnits.
	LastProcessedIndex int `json:"lastProcessedIndex"`

	// ProcessedUnits grows append-only until a reset.
	ProcessedUnits []string `json:"processedFiles"`

	// Completed is set only after every corpus unit has been visited
	// in one run. New units appearing later flip it back to false.
	Completed bool `json:"completed"`
}

// NewCheckpoint returns an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{LastProcessedIndex: -1, ProcessedUnits: []string{}}
}

// Contains reports whether the named unit has been processed.
func (c *Checkpoint) Contains(name string) bool {
	for _, n := range c.ProcessedUnits {
		if n == name {
			return true
		}
	}
	return false
}

// MarkProcessed appends a unit to the processed set.
func (c *Checkpoint) MarkProcessed(index int, name string) {
	c.LastProcessedIndex = index
	c.ProcessedUnits = append(c.ProcessedUnits, name)
}

// Remaining counts the units of the given corpus not yet processed.
func (c *Checkpoint) Remaining(units []Unit) int {
	seen := make(map[string]struct{}, len(c.ProcessedUnits))
	for _, n := range c.ProcessedUnits {
		seen[n] = struct{}{}
	}
	remaining := 0
	for _, u := range units {
		if _, ok := seen[u.Name]; !ok {
			remaining++
		}
	}
	return remaining
}
