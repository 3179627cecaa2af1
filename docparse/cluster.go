package docparse

import "sort"

// clusterShapes groups vector shapes into candidate diagrams by vertical
// proximity. Shapes are sorted by top position, then walked in order: a shape
// joins the current cluster when it sits within clusterGap of the cluster's
// most recently added member, so a chain of nearby shapes grows one cluster
// even when its first and last members are far apart. Clusters smaller than
// minClusterSize are dropped.
func clusterShapes(shapes []Shape) [][]Shape {
	if len(shapes) == 0 {
		return nil
	}

	sorted := make([]Shape, len(shapes))
	copy(sorted, shapes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Top() < sorted[j].Top()
	})

	var clusters [][]Shape
	current := []Shape{sorted[0]}
	for _, s := range sorted[1:] {
		last := current[len(current)-1]
		if s.Top()-last.Top() < clusterGap {
			current = append(current, s)
			continue
		}
		if len(current) >= minClusterSize {
			clusters = append(clusters, current)
		}
		current = []Shape{s}
	}
	if len(current) >= minClusterSize {
		clusters = append(clusters, current)
	}
	return clusters
}

// clusterBounds returns the union of all member boxes, unexpanded.
func clusterBounds(cluster []Shape) Rect {
	box := cluster[0].Box
	for _, s := range cluster[1:] {
		box = box.Union(s.Box)
	}
	return box
}
