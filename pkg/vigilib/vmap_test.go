package vigilib

import (
	"sync"
	"testing"
)

func TestVMap_Basics(t *testing.T) {
	vm := NewVMap[string, int]()

	if _, ok := vm.Get("a"); ok {
		t.Fatal("Get on empty map reported a hit")
	}
	vm.Set("a", 1)
	vm.Set("b", 2)
	if v, ok := vm.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if vm.Len() != 2 {
		t.Errorf("Len() = %d, want 2", vm.Len())
	}

	vm.Delete("a")
	vm.Delete("missing") // no-op
	if _, ok := vm.Get("a"); ok {
		t.Error("Get(a) hit after Delete")
	}

	seen := 0
	vm.Range(func(k string, v int) bool {
		seen++
		return true
	})
	if seen != 1 {
		t.Errorf("Range visited %d entries, want 1", seen)
	}
}

func TestVMap_RangeEarlyStop(t *testing.T) {
	vm := NewVMap[int, int]()
	for i := 0; i < 10; i++ {
		vm.Set(i, i)
	}
	seen := 0
	vm.Range(func(k, v int) bool {
		seen++
		return seen < 3
	})
	if seen != 3 {
		t.Errorf("Range visited %d entries, want 3", seen)
	}
}

func TestVMap_ConcurrentAccess(t *testing.T) {
	vm := NewVMap[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			vm.Set(n, n)
			vm.Get(n)
			vm.Len()
			vm.Delete(n)
		}(i)
	}
	wg.Wait()
	if vm.Len() != 0 {
		t.Errorf("Len() = %d after all deletes, want 0", vm.Len())
	}
}
