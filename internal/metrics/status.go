package metrics

import "sort"

// StatusBucket represents the aggregated failure count for a status code or
// transport error class.
type StatusBucket struct {
	Bucket string
	Label  string
	Count  int64
}

// FlattenStatusBuckets converts a bucket->count map into a sorted slice of rows.
// Rows are sorted by descending count, then by bucket for stability.
func FlattenStatusBuckets(buckets map[string]int64) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(buckets))
	for bucket, count := range buckets {
		rows = append(rows, StatusBucket{Bucket: bucket, Label: FriendlyBucketName(bucket), Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Bucket < rows[j].Bucket
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
