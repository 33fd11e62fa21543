package scheduler

import (
	"testing"
)

func TestRoundRobinMapper(t *testing.T) {
	m := RoundRobinMapper{}
	expected := []int{0, 1, 2, 0, 1, 2, 0}
	for id, want := range expected {
		if got := m.Map(id, len(expected), 3); got != want {
			t.Errorf("task %d: expected worker %d, got %d", id, want, got)
		}
	}
}

func TestBlockMapper(t *testing.T) {
	testCases := []struct {
		name     string
		numTasks int
		workers  int
		expected []int
	}{
		{"even", 6, 3, []int{0, 0, 1, 1, 2, 2}},
		{"remainder_first", 7, 3, []int{0, 0, 0, 1, 1, 2, 2}},
		{"nine_by_four", 9, 4, []int{0, 0, 0, 1, 1, 2, 2, 3, 3}},
		{"single_worker", 4, 1, []int{0, 0, 0, 0}},
		{"one_each", 4, 4, []int{0, 1, 2, 3}},
	}
	m := BlockMapper{}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for id, want := range tc.expected {
				if got := m.Map(id, tc.numTasks, tc.workers); got != want {
					t.Errorf("task %d: expected worker %d, got %d", id, want, got)
				}
			}
		})
	}
}

func TestParseMapper(t *testing.T) {
	if m, err := ParseMapper("block"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if _, ok := m.(BlockMapper); !ok {
		t.Errorf("Expected BlockMapper, got %T", m)
	}
	if m, err := ParseMapper(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if _, ok := m.(RoundRobinMapper); !ok {
		t.Errorf("Expected RoundRobinMapper, got %T", m)
	}
	if _, err := ParseMapper("metis"); err == nil {
		t.Error("Expected error for unknown mapper")
	}
}
