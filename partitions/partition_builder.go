package partitions

import (
	"fmt"
	"math"
	"sort"
)

// PartitionBuilder assigns the patches of a level to workers
type PartitionBuilder struct {
	// Per patch work estimate, indexed by level local patch index
	Costs []int

	NumPartitions int
	Strategy      PartitionStrategy
}

// PartitionStrategy defines how patches are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive patches
	RoundRobin                              // Distribute cyclically
	CostBalanced                            // Greedy, largest patch to lightest worker
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round-robin"
	case CostBalanced:
		return "cost-balanced"
	default:
		return fmt.Sprintf("PartitionStrategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a PartitionStrategy
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch name {
	case "", "block":
		return BlockPartition, nil
	case "round-robin", "roundrobin":
		return RoundRobin, nil
	case "cost-balanced", "balanced":
		return CostBalanced, nil
	}
	return BlockPartition, fmt.Errorf("unknown partition strategy %q", name)
}

// BuildPartitions creates a validated layout. Workers beyond the number of
// patches receive empty partitions.
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.NumPartitions < 1 {
		return nil, fmt.Errorf("need at least one partition, have %d", pb.NumPartitions)
	}
	for i, c := range pb.Costs {
		if c < 0 {
			return nil, fmt.Errorf("patch %d has negative cost %d", i, c)
		}
	}

	pToW := pb.partitionPatches()
	partitions := pb.createPartitions(pToW)

	layout := &PartitionLayout{
		Partitions:    partitions,
		NumPartitions: pb.NumPartitions,
		TotalPatches:  len(pb.Costs),
		MaxCost:       calculateMaxCost(partitions),
		PToW:          pToW,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

func (pb *PartitionBuilder) partitionPatches() []int {
	var (
		numPatches = len(pb.Costs)
		pToW       = make([]int, numPatches)
	)
	switch pb.Strategy {
	case RoundRobin:
		for i := 0; i < numPatches; i++ {
			pToW[i] = i % pb.NumPartitions
		}

	case CostBalanced:
		order := make([]int, numPatches)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return pb.Costs[order[a]] > pb.Costs[order[b]]
		})
		load := make([]int, pb.NumPartitions)
		for _, patch := range order {
			lightest := 0
			for w := 1; w < pb.NumPartitions; w++ {
				if load[w] < load[lightest] {
					lightest = w
				}
			}
			pToW[patch] = lightest
			load[lightest] += pb.Costs[patch]
		}

	default:
		perPartition := int(math.Ceil(float64(numPatches) / float64(pb.NumPartitions)))
		if perPartition < 1 {
			perPartition = 1
		}
		for i := 0; i < numPatches; i++ {
			pToW[i] = i / perPartition
			if pToW[i] >= pb.NumPartitions {
				pToW[i] = pb.NumPartitions - 1
			}
		}
	}
	return pToW
}

func (pb *PartitionBuilder) createPartitions(pToW []int) []Partition {
	partitions := make([]Partition, pb.NumPartitions)
	for i := range partitions {
		partitions[i] = Partition{
			ID:      i,
			Patches: make([]int, 0),
		}
	}
	for patch, part := range pToW {
		partitions[part].Patches = append(partitions[part].Patches, patch)
		partitions[part].NumPatches++
		partitions[part].Cost += pb.Costs[patch]
	}
	return partitions
}

func calculateMaxCost(partitions []Partition) int {
	maxCost := 0
	for _, p := range partitions {
		if p.Cost > maxCost {
			maxCost = p.Cost
		}
	}
	return maxCost
}
