// Package vrp holds the problem and solution data structures for the
// capacitated vehicle routing solver: the parsed Instance with its
// precomputed distance matrix, and the Route/Solution types whose cost and
// capacity are maintained incrementally under destroy/repair mutation.
package vrp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Instance is an immutable parsed CVRP problem. Customer 0 is the depot.
// It is built once and shared read-only across all solver workers.
type Instance struct {
	NumCustomers int // including the depot at index 0
	NumVehicles  int
	VehicleCap   int

	Demand []int     // Demand[0] == 0 by convention
	X      []float64 // coordinates, parallel to Demand
	Y      []float64

	// Dist[i][j] is the symmetric Euclidean distance between customers
	// i and j, with row/column 0 used for the depot.
	Dist [][]float64

	// MaxRouteLen bounds how many stops any route can hold, derived by
	// packing smallest demands until capacity runs out. Used only to
	// preallocate route slices.
	MaxRouteLen int
}

// LoadInstance reads and parses an instance file.
func LoadInstance(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instance: %w", err)
	}
	defer f.Close()
	inst, err := ParseInstance(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return inst, nil
}

// ParseInstance parses the whitespace-delimited instance format:
//
//	<numCustomers> <numVehicles> <vehicleCapacity>
//	<demand> <x> <y>   (one line per customer, depot first with demand 0)
//
// Any malformed line is an error; a partially parsed Instance is never
// returned.
func ParseInstance(r io.Reader) (*Instance, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line, err := nextLine(sc)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("header %q: want 3 fields, got %d", line, len(fields))
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("number of customers: %w", err)
	}
	vehicles, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("number of vehicles: %w", err)
	}
	capacity, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("vehicle capacity: %w", err)
	}
	if n < 1 || vehicles < 1 || capacity < 1 {
		return nil, fmt.Errorf("header %q: all fields must be positive", line)
	}

	inst := &Instance{
		NumCustomers: n,
		NumVehicles:  vehicles,
		VehicleCap:   capacity,
		Demand:       make([]int, n),
		X:            make([]float64, n),
		Y:            make([]float64, n),
	}
	for i := 0; i < n; i++ {
		line, err := nextLine(sc)
		if err != nil {
			return nil, fmt.Errorf("customer %d: %w", i, err)
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("customer %d: line %q has %d fields, want 3", i, line, len(fields))
		}
		if inst.Demand[i], err = strconv.Atoi(fields[0]); err != nil {
			return nil, fmt.Errorf("customer %d demand: %w", i, err)
		}
		if inst.X[i], err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, fmt.Errorf("customer %d x: %w", i, err)
		}
		if inst.Y[i], err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, fmt.Errorf("customer %d y: %w", i, err)
		}
	}

	inst.Dist = distanceMatrix(inst.X, inst.Y)
	inst.MaxRouteLen = maxRouteLen(inst.Demand, inst.VehicleCap)
	return inst, nil
}

func nextLine(sc *bufio.Scanner) (string, error) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

func distanceMatrix(x, y []float64) [][]float64 {
	n := len(x)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			d[i][j] = math.Hypot(x[i]-x[j], y[i]-y[j])
		}
	}
	return d
}

// maxRouteLen packs the smallest demands until capacity is exhausted; the
// count is an upper bound on stops per route, used for preallocation.
func maxRouteLen(demand []int, capacity int) int {
	if len(demand) <= 1 {
		return 0
	}
	rest := append([]int(nil), demand[1:]...)
	sort.Ints(rest)
	used, count := 0, 0
	for _, d := range rest {
		if used >= capacity {
			break
		}
		count++
		used += d
	}
	return count
}

// Distance returns the road distance between customers a and b. Index 0 is
// the depot.
func (inst *Instance) Distance(a, b int) float64 {
	return inst.Dist[a][b]
}
