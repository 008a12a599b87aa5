package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultClusterCount  = 10
	defaultKMeansMaxIter = 300
	defaultKMeansTol     = 1e-4
)

// ClusterModel is the fitted state of the spatial clusterer: k points in
// (lattitude, longtitude) space.
type ClusterModel struct {
	Centroids [][2]float64 `json:"centroids"`
}

// Assign returns the index of the nearest centroid. Equal distances resolve
// to the lower index.
func (m ClusterModel) Assign(lat, lon float64) int {
	point := []float64{lat, lon}
	best := 0
	bestDist := math.Inf(1)
	for i, c := range m.Centroids {
		d := floats.Distance(point, c[:], 2)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func (m ClusterModel) K() int { return len(m.Centroids) }

// SpatialClusterer partitions coordinates with Lloyd's k-means, seeded with
// k-means++ from a fixed seed.
type SpatialClusterer struct {
	K       int
	Seed    int64
	MaxIter int
	Tol     float64
}

func NewSpatialClusterer(k int, seed int64) *SpatialClusterer {
	return &SpatialClusterer{K: k, Seed: seed, MaxIter: defaultKMeansMaxIter, Tol: defaultKMeansTol}
}

func (c *SpatialClusterer) Fit(coords [][2]float64) (ClusterModel, error) {
	k := c.K
	if k <= 0 {
		k = DefaultClusterCount
	}
	if len(coords) == 0 {
		return ClusterModel{}, errors.New("coordinates are empty")
	}
	if distinctPoints(coords, k) < k {
		return ClusterModel{}, fmt.Errorf("need at least %d distinct coordinates", k)
	}
	maxIter := c.MaxIter
	if maxIter <= 0 {
		maxIter = defaultKMeansMaxIter
	}

	rnd := rand.New(rand.NewSource(c.Seed))
	centroids := seedCentroids(coords, k, rnd)
	assignments := make([]int, len(coords))

	for iter := 0; iter < maxIter; iter++ {
		model := ClusterModel{Centroids: centroids}
		for i, p := range coords {
			assignments[i] = model.Assign(p[0], p[1])
		}

		next := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range coords {
			ci := assignments[i]
			next[ci][0] += p[0]
			next[ci][1] += p[1]
			counts[ci]++
		}
		for ci := range next {
			if counts[ci] == 0 {
				next[ci] = farthestPoint(coords, assignments, centroids)
				continue
			}
			next[ci][0] /= float64(counts[ci])
			next[ci][1] /= float64(counts[ci])
		}

		shift := 0.0
		for ci := range next {
			shift += squaredDistance(next[ci], centroids[ci])
		}
		centroids = next
		if shift <= c.Tol*c.Tol {
			break
		}
	}
	return ClusterModel{Centroids: centroids}, nil
}

func seedCentroids(coords [][2]float64, k int, rnd *rand.Rand) [][2]float64 {
	centroids := make([][2]float64, 0, k)
	centroids = append(centroids, coords[rnd.Intn(len(coords))])

	weights := make([]float64, len(coords))
	for len(centroids) < k {
		total := 0.0
		for i, p := range coords {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(p, c); d < nearest {
					nearest = d
				}
			}
			weights[i] = nearest
			total += nearest
		}
		target := rnd.Float64() * total
		chosen := -1
		for i, w := range weights {
			if w == 0 {
				continue
			}
			chosen = i
			target -= w
			if target < 0 {
				break
			}
		}
		centroids = append(centroids, coords[chosen])
	}
	return centroids
}

func farthestPoint(coords [][2]float64, assignments []int, centroids [][2]float64) [2]float64 {
	best := 0
	bestDist := -1.0
	for i, p := range coords {
		if d := squaredDistance(p, centroids[assignments[i]]); d > bestDist {
			best = i
			bestDist = d
		}
	}
	return coords[best]
}

func squaredDistance(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}

func distinctPoints(coords [][2]float64, limit int) int {
	seen := make(map[[2]float64]struct{})
	for _, p := range coords {
		seen[p] = struct{}{}
		if len(seen) >= limit {
			break
		}
	}
	return len(seen)
}
