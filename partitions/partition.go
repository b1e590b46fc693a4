package partitions

import (
	"fmt"
)

// Partition is the set of patches on one level that a single worker owns.
// Only the owner iterates, reads or writes these patches during a sweep.
type Partition struct {
	// Unique identifier for this partition, also the owning worker rank
	ID int

	// Patch membership
	Patches    []int // Level local patch indices in this partition
	NumPatches int   // Number of patches assigned
	Cost       int   // Sum of patch costs, usually cell counts
}

// PartitionLayout is the decomposition of one level's patches across workers
type PartitionLayout struct {
	Partitions []Partition

	NumPartitions int
	TotalPatches  int
	MaxCost       int // max(Cost) across all partitions

	// Patch to partition mapping
	PToW []int // Length TotalPatches: patch p belongs to partition PToW[p]
}

// GetPartition returns the partition owning patch p, -1 if out of range
func (pl *PartitionLayout) GetPartition(patchID int) int {
	if patchID < 0 || patchID >= len(pl.PToW) {
		return -1
	}
	return pl.PToW[patchID]
}

// ValidateLayout checks that every patch is owned exactly once and that the
// cached sizes agree with the membership lists.
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("have %d partitions, NumPartitions is %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.PToW) != pl.TotalPatches {
		return fmt.Errorf("PToW length %d != TotalPatches %d", len(pl.PToW), pl.TotalPatches)
	}
	seen := make([]bool, pl.TotalPatches)
	actualMax := 0
	for _, p := range pl.Partitions {
		if p.NumPatches != len(p.Patches) {
			return fmt.Errorf("partition %d: NumPatches %d != %d listed",
				p.ID, p.NumPatches, len(p.Patches))
		}
		for _, patch := range p.Patches {
			if patch < 0 || patch >= pl.TotalPatches {
				return fmt.Errorf("partition %d: patch %d out of range", p.ID, patch)
			}
			if seen[patch] {
				return fmt.Errorf("patch %d assigned twice", patch)
			}
			seen[patch] = true
			if pl.PToW[patch] != p.ID {
				return fmt.Errorf("patch %d: PToW says %d, listed in %d",
					patch, pl.PToW[patch], p.ID)
			}
		}
		if p.Cost > actualMax {
			actualMax = p.Cost
		}
	}
	for patch, ok := range seen {
		if !ok {
			return fmt.Errorf("patch %d is not owned by any partition", patch)
		}
	}
	if actualMax != pl.MaxCost {
		return fmt.Errorf("computed MaxCost %d != stored MaxCost %d", actualMax, pl.MaxCost)
	}
	return nil
}

// Imbalance returns MaxCost over the mean partition cost, 1 is perfect
func (pl *PartitionLayout) Imbalance() float64 {
	total := 0
	for _, p := range pl.Partitions {
		total += p.Cost
	}
	if total == 0 || pl.NumPartitions == 0 {
		return 1
	}
	mean := float64(total) / float64(pl.NumPartitions)
	return float64(pl.MaxCost) / mean
}
