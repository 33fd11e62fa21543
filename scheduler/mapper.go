package scheduler

import (
	"fmt"
	"strings"
)

// Mapper names accepted by ParseMapper
const (
	MapperRoundRobin = "round_robin"
	MapperBlock      = "block"
)

// Mapper is the placement policy of a Pool: it selects the worker, in
// [0, workers), that runs task taskID out of numTasks.
type Mapper interface {
	Map(taskID, numTasks, workers int) int
}

// MapperFunc adapts a function to the Mapper interface
type MapperFunc func(taskID, numTasks, workers int) int

// Map implements Mapper
func (f MapperFunc) Map(taskID, numTasks, workers int) int {
	return f(taskID, numTasks, workers)
}

// RoundRobinMapper distributes tasks cyclically over the workers
type RoundRobinMapper struct{}

// Map implements Mapper
func (RoundRobinMapper) Map(taskID, _, workers int) int {
	return taskID % workers
}

// BlockMapper gives each worker a contiguous run of task ids. The remainder
// of numTasks/workers is spread over the first workers, so run lengths differ
// by at most one.
type BlockMapper struct{}

// Map implements Mapper
func (BlockMapper) Map(taskID, numTasks, workers int) int {
	var (
		base      = numTasks / workers
		remainder = numTasks % workers
		boundary  = remainder * (base + 1)
	)
	if taskID < boundary {
		return taskID / (base + 1)
	}
	if base == 0 {
		return workers - 1
	}
	return remainder + (taskID-boundary)/base
}

// ParseMapper returns the Mapper registered under name
func ParseMapper(name string) (Mapper, error) {
	switch strings.ToLower(name) {
	case MapperRoundRobin, "":
		return RoundRobinMapper{}, nil
	case MapperBlock:
		return BlockMapper{}, nil
	default:
		return nil, fmt.Errorf("unknown mapper %q", name)
	}
}
